package main

import (
	"log"
	"net/http"

	"github.com/mnehpets/rpcwrap/jsonrpc"
	"github.com/mnehpets/rpcwrap/rpchttp"
	"github.com/mnehpets/rpcwrap/services/journal"
)

// Fields reports its outcome through a callback rather than returning it.
type Fields struct {
	values []int
}

func (f *Fields) GetFields(done func(error, []int)) {
	done(nil, f.values)
}

func mustHandler(target any, callbacks ...string) http.Handler {
	w, err := jsonrpc.NewWrapper(target, jsonrpc.WithCallbackMethods(callbacks...))
	if err != nil {
		log.Fatal(err)
	}
	h, err := rpchttp.NewHandler(w)
	if err != nil {
		log.Fatal(err)
	}
	return h
}

func main() {
	mux := http.NewServeMux()
	mux.Handle("/rpc1", mustHandler(journal.New("test.log", nil), journal.CallbackMethods...))
	mux.Handle("/rpc2", mustHandler(&Fields{values: []int{1, 2, 3}}, "getFields"))

	log.Println("Listening on :7079")
	log.Println(`Try: curl -d '{"jsonrpc":"2.0","method":"storeContent","params":["testing file write"],"id":"1"}' http://localhost:7079/rpc1`)
	log.Println(`     curl -d '{"jsonrpc":"2.0","method":"getFields","id":"1"}' http://localhost:7079/rpc2`)
	if err := http.ListenAndServe(":7079", mux); err != nil {
		log.Fatal(err)
	}
}
