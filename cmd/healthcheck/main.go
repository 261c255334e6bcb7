// Package main is the container health probe. It exits 0 when the server's
// liveness endpoint answers 200. Pass "ready" to probe /readyz instead.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	path := "/livez"
	if len(os.Args) > 1 && os.Args[1] == "ready" {
		path = "/readyz"
	}
	if err := probe(path); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func probe(path string) error {
	port := os.Getenv("CAMPUS_PORT")
	if port == "" {
		port = "10000"
	}

	client := &http.Client{Timeout: 8 * time.Second}
	resp, err := client.Get("http://localhost:" + port + path)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}
	return nil
}
