// Package pool 按Key保序执行任务的goroutine池
package pool
