package handler

import (
	"rtcsignal/internal/app/signaling"
	"rtcsignal/internal/configs"
	"rtcsignal/internal/pkg/metrics"
)

// AppDeps carries the long-lived objects the handlers need.
type AppDeps struct {
	Manager *signaling.Manager
	Config  *configs.AppConfig
	Metrics *metrics.Metrics
}
