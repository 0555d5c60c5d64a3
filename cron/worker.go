package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"orchid/config"
	"orchid/services/reminder"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Notifier receives fired end-of-session reminders. Actual delivery (push,
// SMS, in-app) lives behind this interface and outside this service.
type Notifier interface {
	NotifySessionEnding(ctx context.Context, ktvID, bookingID, serviceName string, endTime time.Time) error
}

// LogNotifier is the default Notifier; it only records that the reminder
// fired.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n *LogNotifier) NotifySessionEnding(ctx context.Context, ktvID, bookingID, serviceName string, endTime time.Time) error {
	n.Logger.Info("session ending reminder fired",
		zap.String("ktvId", ktvID),
		zap.String("bookingId", bookingID),
		zap.String("serviceName", serviceName),
		zap.Time("endTime", endTime),
	)
	return nil
}

// InitReminderWorker runs the async worker in background.
func InitReminderWorker(notifier Notifier) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReminderDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				reminder.QueueName: 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(reminder.TypeEndReminder, handleEndReminderTask(notifier))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[ReminderWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[ReminderWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[ReminderWorker] max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleEndReminderTask(notifier Notifier) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p reminder.EndReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[ReminderHandler] invalid payload: %v", err)
			return err
		}

		endTime, err := time.Parse(time.RFC3339, p.EndTime)
		if err != nil {
			log.Printf("[ReminderHandler] invalid endTime %q: %v", p.EndTime, err)
			return err
		}

		if err := notifier.NotifySessionEnding(ctx, p.KTVID, p.BookingID, p.ServiceName, endTime); err != nil {
			log.Printf("[ReminderHandler] failed to notify: %v", err)
			return err
		}
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReminderDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[ReminderWorker] redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
