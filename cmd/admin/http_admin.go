package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

func reloadCmd(args []string) {
	fs := flag.NewFlagSet("reload", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	doAdmin(http.MethodPost, adminURL(*baseURL, "/admin/v1/reload", nil))
}

func spawnCmd(args []string) {
	fs := flag.NewFlagSet("spawn", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	worldID := fs.String("world", "", "world id (default: server default world)")
	trigger := fs.String("trigger", "", "spawn trigger (default: MANUAL)")
	_ = fs.Parse(args)

	q := url.Values{}
	if *worldID != "" {
		q.Set("world", *worldID)
	}
	if *trigger != "" {
		q.Set("trigger", *trigger)
	}
	doAdmin(http.MethodPost, adminURL(*baseURL, "/admin/v1/spawn", q))
}

func statsCmd(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	doAdmin(http.MethodGet, adminURL(*baseURL, "/admin/v1/stats", nil))
}

func adminURL(base, path string, q url.Values) string {
	u := strings.TrimRight(strings.TrimSpace(base), "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func doAdmin(method, u string) {
	cl := &http.Client{Timeout: 10 * time.Second}
	body, status, err := adminRequest(cl, method, u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	fmt.Println(body)
	if status/100 != 2 {
		os.Exit(1)
	}
}

func adminRequest(cl *http.Client, method, u string) (string, int, error) {
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return "", 0, err
	}
	resp, err := cl.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, err
	}
	return strings.TrimSpace(string(b)), resp.StatusCode, nil
}
