package thttp

import (
	"io"
	"net/http"
	"testing"

	"github.com/gorilla/mux"
	"github.com/ridge/must/v2"
	"github.com/ridge/parallel"
	"github.com/ridge/solstream/test"
	"github.com/ridge/solstream/tnet"
	"github.com/stretchr/testify/require"
)

func TestServer(t *testing.T) {
	group := test.Group(t)

	router := mux.NewRouter()
	router.HandleFunc("/hello", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}).Methods(http.MethodGet)

	s := NewServer(tnet.ListenOnRandomPort(), Wrap(router, StandardMiddleware))
	group.Spawn("server", parallel.Fail, s.Run)

	url := "http://" + s.ListenAddr().String()
	res, err := http.DefaultClient.Do(must.OK1(http.NewRequestWithContext(group.Context(), http.MethodGet, url+"/hello", nil)))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Equal(t, "hello", string(body))
	res.Body.Close()

	res, err = http.DefaultClient.Do(must.OK1(http.NewRequestWithContext(group.Context(), http.MethodGet, url+"/missing", nil)))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	res.Body.Close()
}
