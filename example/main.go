package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	slicebridge "github.com/crypt0walker/SliceBridge"
	"github.com/crypt0walker/SliceBridge/arena"
	"github.com/crypt0walker/SliceBridge/inspect"
	"github.com/sirupsen/logrus"
)

func main() {
	addr := flag.String("inspect", "", "serve the inspect endpoints on this address after the demo, e.g. 127.0.0.1:8080")
	debug := flag.Bool("debug", false, "log every handle create/dispose")
	flag.Parse()

	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	pool := arena.NewPool(arena.DefaultOptions())
	defer pool.Close()
	reg := slicebridge.NewRegistry("example", slicebridge.WithRegistryArena(pool))
	defer reg.Close()

	if err := demo(reg); err != nil {
		fmt.Printf("demo error: %v\n", err)
		os.Exit(1)
	}

	if *addr == "" {
		return
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := inspect.NewServer(*addr).Start(ctx); err != nil {
		fmt.Printf("inspect server error: %v\n", err)
		os.Exit(1)
	}
}

func demo(reg *slicebridge.Registry) error {
	// 持有型：拷贝文本
	key, err := reg.CreateFromText("user:42")
	if err != nil {
		return err
	}
	defer reg.Dispose(key)

	prefix, err := reg.CreateFromArrayAt([]byte("xxuser:"), 2)
	if err != nil {
		return err
	}
	defer reg.Dispose(prefix)

	ok, err := reg.StartsWith(key, prefix)
	if err != nil {
		return err
	}
	hex, err := reg.ToDisplayString(key, true)
	if err != nil {
		return err
	}
	fmt.Printf("key=%s hex=%s has prefix user: %v\n", "user:42", hex, ok)

	// 借用型：直接指向外部缓冲
	buf := slicebridge.NewBuffer(16)
	if err := buf.Put([]byte("hdr|payload")); err != nil {
		return err
	}
	buf.Flip()
	body, err := reg.CreateFromBufferToEnd(buf)
	if err != nil {
		return err
	}
	defer reg.Dispose(body)
	if err := reg.RemovePrefix(body, 4); err != nil {
		return err
	}
	s, err := reg.ToDisplayString(body, false)
	if err != nil {
		return err
	}
	fmt.Printf("payload=%s\n", s)

	// 越界会被拒绝
	if err := reg.RemovePrefix(body, 100); err != nil {
		fmt.Printf("rejected: %v\n", err)
	}

	// 释放后的句柄不再可用
	tmp, err := reg.CreateFromText("tmp")
	if err != nil {
		return err
	}
	if err := reg.Dispose(tmp); err != nil {
		return err
	}
	if _, err := reg.Size(tmp); err != nil {
		fmt.Printf("after dispose: %v\n", err)
	}

	st := reg.Stats()
	fmt.Printf("stats: created=%d disposed=%d live=%d\n", st.Created, st.Disposed, st.Live)
	return nil
}
