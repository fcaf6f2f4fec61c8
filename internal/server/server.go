package server

import (
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"connectrpc.com/vanguard"
)

// ConnectService is implemented by each service to register its connect handler.
type ConnectService interface {
	RegisterHandler(interceptors ...connect.Interceptor) (string, http.Handler)
}

// NewHandler serves every service over Connect, gRPC and gRPC-Web, plus the
// REST routes declared by their google.api.http annotations.
func NewHandler(services []ConnectService, interceptors ...connect.Interceptor) (http.Handler, error) {
	vanguardServices := make([]*vanguard.Service, len(services))
	for i, svc := range services {
		path, handler := svc.RegisterHandler(interceptors...)
		vanguardServices[i] = vanguard.NewService(path, handler)
	}

	transcoder, err := vanguard.NewTranscoder(vanguardServices)
	if err != nil {
		return nil, fmt.Errorf("vanguard transcoder: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", transcoder)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux, nil
}
