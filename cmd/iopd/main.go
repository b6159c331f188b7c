// Package main is a demo IOP server: it listens for IC connections on one
// TCP port and serves the same registered RPCs over HTTP (JSON/SOAP) on
// another, wiring ic/rpc/gateway/asn1 together the way a real deployment
// would.
package main

import (
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/intersec-oss/iop/gateway"
	"github.com/intersec-oss/iop/ic"
	"github.com/intersec-oss/iop/internal/cfg"
	"github.com/intersec-oss/iop/internal/nlog"
	"github.com/intersec-oss/iop/rpc"
)

var (
	icAddr   string
	httpAddr string
	verbose  bool
)

func init() {
	flag.StringVar(&icAddr, "ic-addr", ":9001", "IC listener address")
	flag.StringVar(&httpAddr, "http-addr", ":9080", "HTTP gateway listener address")
	flag.BoolVar(&verbose, "verbose", false, "enable verbose nlog output")
}

func main() {
	flag.Parse()
	if verbose {
		nlog.SetVerbose(-1)
	}
	cfg.Set(cfg.Default())

	reg := registerDemoIface()

	icLis, err := net.Listen("tcp", icAddr)
	if err != nil {
		nlog.Errorf("ic listen %s: %v", icAddr, err)
		os.Exit(1)
	}
	dispatcher := &rpc.Dispatcher{Registry: reg}
	go acceptLoop(icLis, dispatcher)
	nlog.Infof("ic listening on %s", icAddr)

	trigger := &gateway.Trigger{
		Prefix:   "/v1/",
		Module:   "demo",
		Registry: reg,
		Iface:    demoIface,
		Names:    map[string]uint16{"echo": demoEcho},
	}
	mux := http.NewServeMux()
	mux.Handle("/v1/", trigger)

	h2s := &http2.Server{}
	srv := &http.Server{
		Addr:    httpAddr,
		Handler: h2c.NewHandler(mux, h2s),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nlog.Errorf("http serve: %v", err)
		}
	}()
	nlog.Infof("http gateway listening on %s", httpAddr)

	waitForSignal()
	nlog.Infof("shutting down")
	_ = icLis.Close()
	_ = srv.Close()
}

func acceptLoop(lis net.Listener, d ic.Dispatcher) {
	for {
		conn, err := lis.Accept()
		if err != nil {
			nlog.Warningf("ic accept: %v", err)
			return
		}
		unix := conn.LocalAddr().Network() == "unix"
		c := ic.NewChannel(conn, "", false, d)
		go c.Run(true, unix)
	}
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}

// demoIface/demoEcho are a single demo RPC so the binary answers
// something over both transports without pulling in a generated IOP
// module; a real deployment registers its compiler-generated cbes here
// instead.
const (
	demoIface uint16 = 1
	demoEcho  uint16 = 1
)

func registerDemoIface() *rpc.Registry {
	reg := rpc.NewRegistry()
	reg.Register(demoIface, demoEcho, &rpc.Cbe{
		Kind: rpc.Normal,
		Fn: func(r *rpc.Responder, slot rpc.Slot, args []byte, hdr *rpc.Header) {
			r.Reply(args)
		},
	})
	return reg
}
