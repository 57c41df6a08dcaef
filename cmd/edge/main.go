package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/SultanXM/Reedstreams-Backend/internal/app/bootstrap"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	runtime, err := bootstrap.NewEdgeRuntime(ctx, "configs/default.yaml")
	if err != nil {
		log.Fatalf("bootstrap edge runtime: %v", err)
	}
	if err := runtime.Run(ctx); err != nil {
		log.Fatalf("run edge: %v", err)
	}
}
