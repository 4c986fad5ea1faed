package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           Reelmarket Resolution API
// @version         0.1.0
// @description     Movie prediction markets: bets, resolution, payouts, and taste scores.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
