package tests

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/Kingsman71/Binary-Learning/core/program"
)

func TestHome(t *testing.T) {
	f := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	f.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET / code = %d", rec.Code)
	}
	if want := "Welcome to " + f.conf.AppName + " API!"; rec.Body.String() != want {
		t.Errorf("GET / = %q, want %q", rec.Body.String(), want)
	}
}

func Test_programApi(t *testing.T) {
	f := setup(t)
	catalog, err := program.DefaultCatalog()
	if err != nil {
		t.Fatal(err)
	}
	get := func(id string) program.Program {
		p, err := catalog.Get(id)
		if err != nil {
			t.Fatal(err)
		}
		return p
	}
	query := func(k, v string) string {
		return "/v1/programs?" + url.Values{k: {v}}.Encode()
	}

	all := make([]interface{}, 0)
	for _, p := range catalog.All() {
		all = append(all, p)
	}

	tests := []httpTest{
		{
			name:     "list",
			method:   http.MethodGet,
			path:     "/v1/programs",
			wantCode: http.StatusOK,
			wantData: marchallList(t, all...),
		},
		{
			name:     "by category",
			method:   http.MethodGet,
			path:     query("category", "Data Science"),
			wantCode: http.StatusOK,
			wantData: marchallList(t, get("data-driven-decisions")),
		},
		{
			name:     "search description",
			method:   http.MethodGet,
			path:     query("search", "MACHINE LEARNING"),
			wantCode: http.StatusOK,
			wantData: marchallList(t, get("data-driven-decisions")),
		},
		{
			name:     "no match",
			method:   http.MethodGet,
			path:     query("search", "underwater basket weaving"),
			wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
		{
			name:     "retrieve",
			method:   http.MethodGet,
			path:     "/v1/programs/digital-fortress",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, get("digital-fortress")),
		},
		{
			name:     "not found",
			method:   http.MethodGet,
			path:     "/v1/programs/nope",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "program not found"}),
		},
		{
			name:     "filters",
			method:   http.MethodGet,
			path:     "/v1/programs/filters",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string][]string{
				"categories": catalog.Categories(),
				"durations":  catalog.Durations(),
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, f.do(tt))
		})
	}
}
