package inspect

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Server 检查接口的 HTTP 服务器
type Server struct {
	addr       string
	engine     *gin.Engine
	httpServer *http.Server
	opts       *ServerOptions
}

// ServerOptions 服务器配置选项
type ServerOptions struct {
	ReadTimeout     time.Duration // 读超时
	WriteTimeout    time.Duration // 写超时
	ShutdownTimeout time.Duration // 优雅关闭的最长等待时间
	GinMode         string        // gin.ReleaseMode / gin.DebugMode / gin.TestMode
}

// DefaultServerOptions 返回默认配置
func DefaultServerOptions() *ServerOptions {
	return &ServerOptions{
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		GinMode:         gin.ReleaseMode,
	}
}

// ServerOption 定义选项函数类型
type ServerOption func(*ServerOptions)

// WithReadTimeout 设置读超时
func WithReadTimeout(d time.Duration) ServerOption {
	return func(o *ServerOptions) {
		o.ReadTimeout = d
	}
}

// WithShutdownTimeout 设置优雅关闭的等待时间
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(o *ServerOptions) {
		o.ShutdownTimeout = d
	}
}

// WithGinMode 设置 gin 的运行模式
func WithGinMode(mode string) ServerOption {
	return func(o *ServerOptions) {
		o.GinMode = mode
	}
}

// NewServer 创建服务器实例
func NewServer(addr string, opts ...ServerOption) *Server {
	options := DefaultServerOptions()
	for _, opt := range opts {
		opt(options)
	}

	gin.SetMode(options.GinMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	Register(engine)

	return &Server{
		addr:   addr,
		engine: engine,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  options.ReadTimeout,
			WriteTimeout: options.WriteTimeout,
		},
		opts: options,
	}
}

// Handler 返回底层的 http.Handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 在 lis 上提供服务，直到 ctx 被取消后优雅关闭
func (s *Server) Run(ctx context.Context, lis net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logrus.Infof("Inspect server starting at %s", lis.Addr())
		if err := s.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("inspect server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("inspect server shutdown: %w", err)
		}
		logrus.Infof("Inspect server at %s stopped", lis.Addr())
		return nil
	})

	return g.Wait()
}

// Start 监听 addr 并阻塞提供服务，直到 ctx 被取消
func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Run(ctx, lis)
}
