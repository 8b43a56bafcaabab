// Package inspect 通过 HTTP 只读地暴露注册表的状态，用于排查句柄泄漏
//
// 这里只读取注册表级别的元数据（创建时记录的模式和长度、统计计数），
// 从不读取切片内容，因此不会与持有句柄的 goroutine 并发访问同一个切片。
package inspect

import (
	"net/http"

	slicebridge "github.com/crypt0walker/SliceBridge"
	"github.com/gin-gonic/gin"
)

// Register 把检查接口挂到 router 上
func Register(router gin.IRouter) {
	router.GET("/healthz", healthz)
	router.GET("/registries", listRegistries)
	router.GET("/registries/:name/stats", registryStats)
	router.GET("/registries/:name/handles", registryHandles)
}

func healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func listRegistries(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"registries": slicebridge.ListRegistries()})
}

func registryStats(c *gin.Context) {
	reg, ok := lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, reg.Stats())
}

func registryHandles(c *gin.Context) {
	reg, ok := lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"registry": reg.Name(),
		"handles":  reg.Handles(),
	})
}

func lookup(c *gin.Context) (*slicebridge.Registry, bool) {
	name := c.Param("name")
	reg := slicebridge.GetRegistry(name)
	if reg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "registry " + name + " not found"})
		return nil, false
	}
	return reg, true
}
