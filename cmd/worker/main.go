package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"hackathon/internal/candidate"
	"hackathon/internal/cloudinary"
	"hackathon/internal/config"
	"hackathon/internal/media"
	"hackathon/internal/queue"
	"hackathon/internal/store"
)

// Worker consumes render jobs and stores candidate QR images.
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

	db, err := store.NewDB(ctx, cfg.DatabaseURL, store.PoolOptions{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	if cfg.QueueBackend == "memory" {
		log.Println("QUEUE_BACKEND=memory: render jobs are handled inside the api process, nothing to do")
		return
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis at %s not reachable yet", cfg.RedisAddr)
	}
	q := queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)

	var assets media.Storage
	if cfg.CloudinaryEnabled() {
		assets = &media.Cloud{Client: cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)}
	} else {
		local, err := media.NewLocal(cfg.UploadDir)
		if err != nil {
			log.Fatalf("upload dir: %v", err)
		}
		assets = local
	}

	candidates := candidate.NewService(candidate.NewRepository(db.Client), nil, assets)

	log.Println("worker started, waiting for messages...")
	err = queue.Serve(ctx, q, map[string]queue.HandlerFunc{
		queue.TypeRenderQR: func(ctx context.Context, msg queue.Message) error {
			id, err := msg.CandidateID()
			if err != nil {
				return err
			}
			log.Printf("rendering qr for candidate %d", id)
			url, err := candidates.RenderAndStoreQR(ctx, id)
			if err != nil {
				return err
			}
			log.Printf("candidate %d qr stored at %s", id, url)
			return nil
		},
	})
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker stopped")
}
