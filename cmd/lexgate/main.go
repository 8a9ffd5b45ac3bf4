package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"goa.design/clue/log"

	"github.com/adliye/lexgate/config"
	"github.com/adliye/lexgate/health"
	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/runtime/browser"
	"github.com/adliye/lexgate/runtime/normalize"
	"github.com/adliye/lexgate/runtime/session"
	"github.com/adliye/lexgate/runtime/telemetry"
	"github.com/adliye/lexgate/runtime/toolkit"
	"github.com/adliye/lexgate/runtime/websearch"
	"github.com/adliye/lexgate/sources"
	"github.com/adliye/lexgate/sources/anayasa"
	"github.com/adliye/lexgate/sources/bddk"
	"github.com/adliye/lexgate/sources/bedesten"
	"github.com/adliye/lexgate/sources/danistay"
	"github.com/adliye/lexgate/sources/emsal"
	"github.com/adliye/lexgate/sources/kik"
	"github.com/adliye/lexgate/sources/kvkk"
	"github.com/adliye/lexgate/sources/rekabet"
	"github.com/adliye/lexgate/sources/sayistay"
	"github.com/adliye/lexgate/sources/uyusmazlik"
	"github.com/adliye/lexgate/sources/yargitay"
	"github.com/adliye/lexgate/tools"
)

const (
	serverName    = "lexgate"
	serverVersion = "1.0.0"
)

func main() {
	var (
		httpF = flag.String("http", "", "Serve MCP over HTTP on this address instead of stdio")
		fastF = flag.Bool("fast", false, "Skip the human-paced browser gestures")
		dbgF  = flag.Bool("debug", false, "Enable debug logs")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "lexgate:", err)
		os.Exit(1)
	}

	// On stdio, stdout belongs to the protocol; logs go to stderr or, when
	// configured, to a file under the log directory.
	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	opts := []log.LogOption{log.WithFormat(format), log.WithOutput(os.Stderr)}
	if cfg.LogDir != "" {
		f, err := os.OpenFile(filepath.Join(cfg.LogDir, "lexgate.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "lexgate:", err)
			os.Exit(1)
		}
		defer f.Close()
		opts = append(opts, log.WithOutput(f))
	}
	if *dbgF {
		opts = append(opts, log.WithDebug())
	}
	ctx := log.Context(context.Background(), opts...)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		logger  = telemetry.NewClueLogger()
		metrics = telemetry.NewClueMetrics()
		tracer  = telemetry.NewClueTracer()
	)

	pool := session.NewPool(logger)
	for _, id := range config.AllSources() {
		if cfg.SourceEnabled(id) {
			pool.Register(id, cfg.SessionConfig(id))
		}
	}
	defer pool.Shutdown()

	browsers := browser.NewPool(browser.Config{FastMode: *fastF}, logger)
	defer browsers.Shutdown()

	norm := normalize.New()
	searcher := websearch.New(websearch.Config{Token: cfg.WebSearchToken})

	builders := []struct {
		id    legal.SourceID
		build func() sources.Adapter
	}{
		{legal.SourceYargitay, func() sources.Adapter { return yargitay.New(pool, norm, logger) }},
		{legal.SourceDanistay, func() sources.Adapter { return danistay.New(pool, norm, logger) }},
		{legal.SourceEmsal, func() sources.Adapter { return emsal.New(pool, norm, logger) }},
		{legal.SourceUyusmazlik, func() sources.Adapter { return uyusmazlik.New(pool, norm, logger) }},
		{legal.SourceAnayasa, func() sources.Adapter { return anayasa.New(pool, norm, logger) }},
		{legal.SourceKIK, func() sources.Adapter { return kik.New(pool, browsers, norm, logger) }},
		{legal.SourceRekabet, func() sources.Adapter { return rekabet.New(pool, norm, logger) }},
		{legal.SourceSayistay, func() sources.Adapter { return sayistay.New(pool, norm, logger) }},
		{legal.SourceBDDK, func() sources.Adapter { return bddk.New(pool, searcher, norm, logger) }},
		{legal.SourceKVKK, func() sources.Adapter { return kvkk.New(pool, searcher, norm, logger) }},
		{legal.SourceBedesten, func() sources.Adapter { return bedesten.New(pool, norm, logger) }},
	}
	var adapters []sources.Adapter
	for _, b := range builders {
		if !cfg.SourceEnabled(b.id) {
			log.Print(ctx, log.KV{K: "msg", V: "backend disabled"}, log.KV{K: "source", V: b.id})
			continue
		}
		adapters = append(adapters, b.build())
	}

	set := sources.NewSet(adapters...)
	prober := health.New(set, health.DefaultProbeTimeout, logger)
	catalog := tools.New(set, prober)

	reg, err := toolkit.NewRegistry(catalog.Descriptors()...)
	if err != nil {
		log.Fatal(ctx, err)
	}
	dispatcher := toolkit.NewDispatcher(reg, toolkit.DispatcherConfig{}, logger, metrics, tracer)

	srv := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	if err := toolkit.ExportMCP(srv, dispatcher); err != nil {
		log.Fatal(ctx, err)
	}

	if *httpF != "" {
		serveHTTP(ctx, cfg, srv, *httpF)
		return
	}
	log.Printf(ctx, "serving MCP on stdio, %d tools, %d backends", len(reg.Names()), len(adapters))
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatal(ctx, err)
	}
	log.Printf(ctx, "exited")
}
