package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

var startTime = time.Now()

// HandleSystemStatus reports host and process metrics for operators. Metric
// collection failures degrade to partial output rather than erroring the
// whole endpoint.
func HandleSystemStatus(c *gin.Context) {
	status := gin.H{
		"uptime_seconds": int64(time.Since(startTime).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
		"num_cpu":        runtime.NumCPU(),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		status["cpu_percent"] = percents[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		status["memory"] = gin.H{
			"total":        vm.Total,
			"available":    vm.Available,
			"used_percent": vm.UsedPercent,
		}
	}

	if avg, err := load.Avg(); err == nil {
		status["load"] = gin.H{
			"load1":  avg.Load1,
			"load5":  avg.Load5,
			"load15": avg.Load15,
		}
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	status["process"] = gin.H{
		"heap_alloc": memStats.HeapAlloc,
		"sys":        memStats.Sys,
		"num_gc":     memStats.NumGC,
	}

	c.JSON(http.StatusOK, status)
}
