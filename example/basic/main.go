package main

import (
	"log"
	"net/http"

	"github.com/mnehpets/rpcwrap/jsonrpc"
	"github.com/mnehpets/rpcwrap/rpchttp"
	"github.com/mnehpets/rpcwrap/services/arith"
)

func main() {
	// Wrap a plain map of funcs: every entry is callable by its key.
	w, err := jsonrpc.NewWrapper(arith.New())
	if err != nil {
		log.Fatal(err)
	}
	h, err := rpchttp.NewHandler(w)
	if err != nil {
		log.Fatal(err)
	}

	http.Handle("/rpc", h)

	log.Println("Listening on :7080")
	log.Println(`Try: curl -d '{"jsonrpc":"2.0","method":"add","params":[1,2,3,4],"id":1}' http://localhost:7080/rpc`)
	if err := http.ListenAndServe(":7080", nil); err != nil {
		log.Fatal(err)
	}
}
