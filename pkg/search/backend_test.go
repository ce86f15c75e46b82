package search

import "testing"

func TestParseBackend(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		want Backend
	}{
		{"tavily", BackendTavily},
		{"bing", BackendBing},
		{"local_search_server", BackendLocal},
		{"foo", BackendUnknown},
		{"Tavily", BackendUnknown},
		{"", BackendUnknown},
	}
	for _, tc := range cases {
		if got := ParseBackend(tc.name); got != tc.want {
			t.Errorf("ParseBackend(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestBackendString(t *testing.T) {
	t.Parallel()

	cases := map[Backend]string{
		BackendTavily:  "tavily",
		BackendBing:    "bing",
		BackendLocal:   "local_search_server",
		BackendUnknown: "unknown",
	}
	for backend, want := range cases {
		if got := backend.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", backend, got, want)
		}
	}
}
