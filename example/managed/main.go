package main

import (
	"log"
	"net/http"

	"github.com/mnehpets/rpcwrap/jsonrpc"
	"github.com/mnehpets/rpcwrap/middleware"
	"github.com/mnehpets/rpcwrap/rpchttp"
	"github.com/mnehpets/rpcwrap/services/products"
)

func main() {
	// A managed target: only registered methods are callable and every
	// call is checked by AreParamsValid first.
	svc := products.New(
		products.Product{ID: 1, Name: "Product 1"},
		products.Product{ID: 2, Name: "Product 2"},
		products.Product{ID: 3, Name: "Product 3"},
	)
	w, err := jsonrpc.NewWrapper(svc)
	if err != nil {
		log.Fatal(err)
	}

	// API headers with CORS for a browser front end, request ids and a 64KB
	// body cap.
	h, err := rpchttp.NewHandler(w,
		rpchttp.WithCompression(true),
		rpchttp.WithProcessors(
			middleware.NewRequestIDProcessor(),
			middleware.NewAPIHeadersProcessor(middleware.WithAllowedOrigins("https://app.example.com")),
			&middleware.MaxBodyProcessor{Limit: 64 << 10},
		),
	)
	if err != nil {
		log.Fatal(err)
	}

	mux := http.NewServeMux()
	mux.Handle("/rpc", h)

	log.Println("Listening on :7078")
	log.Println(`Try: curl -d '[{"jsonrpc":"2.0","method":"create","params":{"id":4,"name":"Product 4"},"id":"1"},{"jsonrpc":"2.0","method":"find","params":[4],"id":"2"}]' http://localhost:7078/rpc`)
	if err := http.ListenAndServe(":7078", mux); err != nil {
		log.Fatal(err)
	}
}
