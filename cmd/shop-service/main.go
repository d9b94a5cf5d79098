package main

import (
	"flag"
	"log"

	"shoply/shop-service/internal/app"
)

func main() {
	seed := flag.Bool("seed", false, "seed the product catalog and exit")
	flag.Parse()

	if err := app.Run(*seed); err != nil {
		log.Fatalf("shop service failed: %v", err)
	}
}
