package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/isabella232/hostedwallet-server-staging/internal/lws"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/db"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/moneroutil"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/peer"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/supervisor"
)

func version() string { return "0.1.0" }

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	if err := scannerMain(); err != nil {
		os.Exit(1)
	}
}

// scannerMain is a work-around main function that is required since
// deferred functions (such as log flushing) are not called with calls
// to os.Exit. Instead main runs this function and checks for a non-nil
// error, at which point any defers have already run.
func scannerMain() error {
	cfg, _, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return err
	}
	defer backendLog.Flush()

	net, err := networkParams(cfg)
	if err != nil {
		log.Errorf("Invalid network configuration: %v", err)
		return err
	}

	storage, err := db.Open(db.Config{
		Path:           cfg.DBFile,
		CreateQueueMax: cfg.CreateQueueMax,
		Retention:      net.RetentionBlocks,
	})
	if err != nil {
		log.Errorf("Unable to open scan database: %v", err)
		return err
	}
	defer storage.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := peer.Dial(ctx, cfg.DaemonRPC)
	if err != nil {
		log.Errorf("Unable to connect to daemon at %s: %v", cfg.DaemonRPC, err)
		return err
	}
	defer client.Close()

	canceller := peer.NewCanceller()
	running := lws.NewRunning()

	sup := supervisor.New(storage, client, client, moneroutil.Real{}, unimplementedDecoder{}, canceller, running, cfg.ScanThreads, net.GenesisHash)

	addInterruptHandler(func() {
		running.Stop()
		canceller.Broadcast()
		cancel()
	})

	log.Infof("lws-scanner %s starting, network=%s, daemon=%s", version(), net.Name, cfg.DaemonRPC)
	runErr := sup.Run(ctx)
	if runErr != nil {
		log.Errorf("Scanner exited with error: %v", runErr)
		return runErr
	}

	log.Info("Scanner shut down cleanly")
	return nil
}
