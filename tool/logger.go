package tool

import (
	"github.com/charmbracelet/log"
)

var DefaultLogger = log.Default()

func InitLogger() {
	DefaultLogger.SetTimeFormat("2006-01-02 15:04:05")
	DefaultLogger.SetReportCaller(true)
}

// SetDebugLogger switches the default logger to debug level (the -log=dev flag).
func SetDebugLogger() {
	DefaultLogger.SetLevel(log.DebugLevel)
}
