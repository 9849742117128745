// Command padoracle runs a padding-oracle attack against a line
// protocol TCP service described by config.yaml:
//
//	server: chall.example.org
//	port: 1600
//	validMarker: "well-formed"
//	invalidMarker: "chaotic"
//	ciphertextPattern: 'Prophecy \(HEX\): ([0-9a-fA-F]+)'
//
// Positional arguments override server and port.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/nullmass/padoracle"
	"github.com/nullmass/padoracle/internal/config"
	"github.com/nullmass/padoracle/internal/transport"
	"github.com/nullmass/padoracle/pkg/logging"
)

func main() {
	log := logging.Logger

	conf, err := config.Load("config.yaml", os.Args[1:])
	if err != nil {
		log.Error("loading config", "err", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf("%s:%d", conf.Server, conf.Port)
	log.Info("dialing oracle", "addr", addr)

	tr, err := transport.DialLine(transport.LineConfig{
		Addr:              addr,
		ValidMarker:       conf.ValidMarker,
		InvalidMarker:     conf.InvalidMarker,
		CiphertextPattern: conf.CiphertextPattern,
		QueryTimeout:      time.Duration(conf.QueryTimeoutMs) * time.Millisecond,
		Logger:            log,
	})
	if err != nil {
		log.Error("connecting", "err", err)
		os.Exit(1)
	}
	defer tr.Close()

	var ciphertext []byte
	if conf.CiphertextHex != "" {
		ciphertext, err = hex.DecodeString(conf.CiphertextHex)
		if err != nil {
			log.Error("decoding configured ciphertext", "err", err)
			os.Exit(1)
		}
	} else {
		ciphertext, err = tr.Ciphertext()
		if err != nil {
			log.Error("extracting ciphertext from banner", "err", err)
			os.Exit(1)
		}
	}
	log.Info("attacking", "ciphertext_bytes", len(ciphertext))

	engine, err := padoracle.New(padoracle.Config{
		Logger:         log,
		RetryAttempts:  conf.RetryAttempts,
		CachePath:      conf.CachePath,
		TranscriptPath: conf.TranscriptPath,
	})
	if err != nil {
		log.Error("building engine", "err", err)
		os.Exit(1)
	}

	start := time.Now()
	res, err := engine.Decrypt(context.Background(), ciphertext, tr)
	if err != nil {
		log.Error("attack aborted", "err", err, "queries", res.Queries)
		os.Exit(1)
	}

	log.Info("attack complete",
		"queries", res.Queries,
		"elapsed", time.Since(start),
		"padding_verified", res.PaddingVerified,
		"unresolved_bytes", len(res.Unresolved))

	for _, pos := range res.Unresolved {
		log.Warn("unresolved byte", "block", pos.Block, "index", pos.Index)
	}

	fmt.Printf("plaintext (hex): %x\n", res.Plaintext)
	fmt.Printf("plaintext: %s\n", printable(res.Plaintext))
}

func printable(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 0x20 && c < 0x7f {
			out[i] = c
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}
