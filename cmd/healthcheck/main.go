// Command healthcheck probes the local server's readiness endpoint and
// exits 0 or 1, for use as a container health check.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	port := os.Getenv("CG_PORT")
	if port == "" {
		port = "10000"
	}

	client := &http.Client{Timeout: 8 * time.Second}

	resp, err := client.Get(fmt.Sprintf("http://localhost:%s/readyz", port))
	if err != nil {
		fmt.Fprintln(os.Stderr, "readiness probe failed:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintln(os.Stderr, "readiness probe returned", resp.Status)
		os.Exit(1)
	}
}
