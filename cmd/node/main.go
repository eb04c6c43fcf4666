// Command node starts a Glisk ledger node.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/NikitaPirate/glisk/config"
	"github.com/NikitaPirate/glisk/core"
	"github.com/NikitaPirate/glisk/events"
	"github.com/NikitaPirate/glisk/indexer"
	"github.com/NikitaPirate/glisk/rpc"
	"github.com/NikitaPirate/glisk/sequencer"
	"github.com/NikitaPirate/glisk/storage"
	"github.com/NikitaPirate/glisk/vm"
	"github.com/NikitaPirate/glisk/wallet"

	// Import engine modules to trigger their init() self-registration.
	_ "github.com/NikitaPirate/glisk/vm/modules/bank"
	_ "github.com/NikitaPirate/glisk/vm/modules/minting"
	_ "github.com/NikitaPirate/glisk/vm/modules/reveal"
	_ "github.com/NikitaPirate/glisk/vm/modules/rewards"
	_ "github.com/NikitaPirate/glisk/vm/modules/roles"
	_ "github.com/NikitaPirate/glisk/vm/modules/royalty"
	_ "github.com/NikitaPirate/glisk/vm/modules/season"
)

func main() {
	cfgPath := flag.String("config", "config.json", "path to config file")
	keyPath := flag.String("key", "sequencer.key", "path to keystore file")
	genKey := flag.Bool("genkey", false, "generate a new sequencer key and exit")
	flag.Parse()

	// Read keystore password from environment (not CLI flags — they leak via ps).
	password := os.Getenv("GLISK_PASSWORD")
	if password == "" {
		log.Println("WARNING: GLISK_PASSWORD not set — keystore will use an empty password")
	}

	// ---- generate key mode ----
	if *genKey {
		w, err := wallet.Generate()
		if err != nil {
			log.Fatal(err)
		}
		if err := wallet.SaveKey(*keyPath, password, w.PrivKey()); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Generated key. Public key (sequencer address): %s\n", w.PubKey())
		fmt.Printf("Saved to: %s\n", *keyPath)
		return
	}

	// ---- load config ----
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- load sequencer key ----
	privKey, err := wallet.LoadKey(*keyPath, password)
	if err != nil {
		log.Fatalf("load key: %v", err)
	}

	// ---- open DB ----
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("mkdir data dir: %v", err)
	}
	db, err := storage.NewLevelDB(cfg.DataDir + "/ledger")
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	blockStore := storage.NewLevelBlockStore(db)
	state := storage.NewStateDB(db) // same DB, different key prefixes

	// ---- initialise ledger ----
	bc := core.NewBlockchain(blockStore)
	if err := bc.Init(); err != nil {
		log.Fatalf("blockchain init: %v", err)
	}

	// ---- genesis block (if fresh ledger) ----
	if bc.Tip() == nil {
		genesisBlock, err := config.CreateGenesisBlock(cfg, state, privKey)
		if err != nil {
			log.Fatalf("genesis: %v", err)
		}
		if err := bc.AddBlock(genesisBlock); err != nil {
			log.Fatalf("add genesis: %v", err)
		}
		log.Printf("Genesis block committed: %s", genesisBlock.Hash)
	}

	// ---- events / indexer / mempool / executor ----
	emitter := events.NewEmitter()
	idx := indexer.New(db, emitter)
	mempool := core.NewMempool()
	exec := vm.NewExecutor(state, emitter)

	// ---- sequencer ----
	seq := sequencer.New(cfg, bc, state, mempool, exec, emitter, privKey)

	// ---- RPC ----
	rpcAddr := fmt.Sprintf(":%d", cfg.RPCPort)
	rpcHandler := rpc.NewHandler(bc, mempool, state, idx, cfg.Genesis.ChainID)
	rpcServer := rpc.NewServer(rpcAddr, rpcHandler, cfg.RPCAuthToken)
	if err := rpcServer.Start(); err != nil {
		log.Fatalf("rpc start: %v", err)
	}
	defer rpcServer.Stop()
	log.Printf("RPC listening on %s", rpcAddr)
	if cfg.RPCAuthToken != "" {
		log.Println("RPC Bearer token authentication enabled")
	}

	// ---- block production loop ----
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		seq.Run(2*time.Second, done)
	}()
	if seq.IsSequencer() {
		log.Printf("Sequencer running (key: %s)", privKey.Public().Hex())
	} else {
		log.Printf("Read-only node (sequencer key is %s)", cfg.Sequencer)
	}

	// ---- graceful shutdown ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("Shutting down...")

	// 1. Stop block production first (no new blocks written)
	close(done)
	wg.Wait()

	// 2. Deferred calls run in LIFO: rpcServer.Stop → db.Close
	log.Println("Shutdown complete.")
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Config file not found at %s, using defaults.", path)
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}
