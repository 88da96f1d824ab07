package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"schoolportal/internal/config"
	"schoolportal/internal/enroll"
	"schoolportal/internal/faceclient"
	"schoolportal/internal/queue"
	"schoolportal/internal/school"
	"schoolportal/internal/store"
)

// Worker consumes enrollment jobs, calls the face service, and stores the
// resulting encodings on the student.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend == "memory" {
		log.Fatal("QUEUE_BACKEND=memory enrolls inside the api process; the worker needs redis")
	}

	db, err := store.NewDB(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	q := queue.NewRedisQueue(redisClient.Client, "")

	face := faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip)
	if !cfg.FaceSkip {
		if err := face.Health(ctx); err != nil {
			log.Printf("WARNING: Face service not available: %v", err)
			log.Println("Jobs will fail until the face service is reachable")
		} else {
			log.Println("Face service connected")
		}
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for enrollment jobs...")
	n := enroll.NewProcessor(face, school.NewStudents(db.Client)).Consume(ctx, messages)
	log.Printf("worker stopped after %d enrollment(s)", n)
}
