package transport

import "net/http"

type Handler interface {
	recordings(w http.ResponseWriter, r *http.Request)
	recording(w http.ResponseWriter, r *http.Request)
}

type router struct {
	h Handler
}

func NewRouter(h Handler) *router {
	return &router{h: h}
}

func (r *router) MountRoutes(mux *http.ServeMux) *http.ServeMux {
	mux.HandleFunc("/recordings", r.h.recordings)
	mux.HandleFunc("/recordings/", r.h.recording)

	return mux
}
