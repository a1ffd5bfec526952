package worker

import (
	"context"
	"errors"
	"fmt"

	"aura-board/internal/repository"
	"aura-board/internal/tasks"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// WorkerServer runs the asynq handlers for room bookkeeping.
type WorkerServer struct {
	server *asynq.Server
	log    *logrus.Entry
	rooms  repository.RoomRepository
	active ActiveRooms
}

// NewWorkerServer creates a WorkerServer. active is usually the websocket hub.
func NewWorkerServer(redisOpt asynq.RedisClientOpt, rooms repository.RoomRepository, active ActiveRooms, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default":      3,
				tasks.QueueLow: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
			Logger: logEntry,
		},
	)

	return &WorkerServer{
		server: server,
		log:    logEntry,
		rooms:  rooms,
		active: active,
	}
}

// Mux builds the task routing table.
func (ws *WorkerServer) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeRoomActivity, NewRoomActivityHandler(ws.rooms))
	mux.Handle(tasks.TypeRoomPresenceSweep, NewPresenceSweepHandler(ws.active, ws.rooms))
	return mux
}

// Start launches the worker goroutines and returns. Stop them with Shutdown.
func (ws *WorkerServer) Start() error {
	ws.log.Info("Worker server starting...")
	if err := ws.server.Start(ws.Mux()); err != nil {
		if errors.Is(err, asynq.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("start worker server: %w", err)
	}
	return nil
}

// Shutdown stops the worker server gracefully.
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server stopped.")
}
