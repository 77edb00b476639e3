package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	httpapi "lsmdb/internal/http"
	"lsmdb/pkg/metrics"
	"lsmdb/pkg/session"
	"lsmdb/pkg/store"
)

func call(method, base, key, value string) {
	endpoint := base + "/keys/" + url.PathEscape(key)

	var resp *http.Response
	var err error

	switch method {
	case "put":
		fmt.Printf("[demo] PUT    key=%s value=%s\n", key, value)
		req, _ := http.NewRequest(http.MethodPut, endpoint, strings.NewReader(value))
		resp, err = http.DefaultClient.Do(req)
	case "get":
		fmt.Printf("[demo] GET    key=%s\n", key)
		resp, err = http.Get(endpoint)
	case "delete":
		fmt.Printf("[demo] DELETE key=%s\n", key)
		req, _ := http.NewRequest(http.MethodDelete, endpoint, nil)
		resp, err = http.DefaultClient.Do(req)
	case "commit":
		fmt.Println("[demo] COMMIT")
		resp, err = http.Post(base+"/commit", "application/json", nil)
	default:
		fmt.Printf("[demo] unsupported method: %s\n", method)
		return
	}

	if err != nil {
		fmt.Println("[demo]", method, "error:", err)
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("[demo] RESPONSE: %s\n", body)
}

func runDemo(base string, collector *metrics.Memory) {
	fmt.Println("=== sessiondb demo ===")
	call("put", base, "user:1", "Alice")
	call("put", base, "user:2", "Bob")
	call("get", base, "user:1", "")
	call("put", base, "user:1", "Alice Updated")
	call("get", base, "user:1", "")
	call("delete", base, "user:2", "")
	call("get", base, "user:2", "")
	call("commit", base, "", "")

	fmt.Printf("[demo] leaf_writes_total=%v leaf_erases_total=%v\n",
		collector.Counter("leaf_writes_total", nil),
		collector.Counter("leaf_erases_total", nil))
}

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to the YAML config file")
		demo       = flag.Bool("demo", false, "run a short demo against the server, then exit")
	)
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := initConfig(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}
	initLogger(&cfg)

	leaf, err := store.NewLeaf(ctx, cfg.Persistence)
	if err != nil {
		fmt.Printf("failed to open leaf store: %v\n", err)
		os.Exit(1)
	}

	root := session.NewAttached(leaf)

	collector := metrics.NewMemory()
	leaf.SetMetrics(collector)

	port := fmt.Sprintf("%d", cfg.Server.Port)
	server := httpapi.NewServer(root, leaf, port)
	server.SetMetrics(collector)
	if err := server.Start(); err != nil {
		fmt.Printf("failed to start server: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("sessiondb listening on %s\n", server.URL)

	if *demo {
		time.Sleep(100 * time.Millisecond)
		runDemo(server.URL, collector)
		cancel()
	} else {
		fmt.Println("Press Ctrl+C to stop...")
	}

	<-ctx.Done()

	if err := server.Stop(); err != nil {
		fmt.Printf("error stopping server: %v\n", err)
	}

	root.Commit()
	if err := leaf.Flush(); err != nil {
		fmt.Printf("error flushing leaf store on shutdown: %v\n", err)
	}
	if err := leaf.Close(); err != nil {
		fmt.Printf("error closing leaf store: %v\n", err)
	}

	fmt.Println("sessiondb stopped")
}
