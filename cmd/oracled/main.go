// Command oracled is a reference padding-oracle service to practice
// against. It encrypts a secret under a fresh random key, hands out the
// ciphertext in the banner, and answers padding verdicts for submitted
// hex ciphertexts, speaking the same line protocol the attack CLI
// expects.
//
//	oracled [addr] [secret]
package main

import (
	"bufio"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"os"

	"github.com/nullmass/padoracle/pkg/logging"
	"github.com/nullmass/padoracle/pkg/pkcs7"
)

func main() {
	log := logging.Logger

	addr := ":1600"
	secret := "n3xt{y0u_h4v3_br0k3n_th3_0r4cl3}"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}
	if len(os.Args) > 2 {
		secret = os.Args[2]
	}

	key := make([]byte, 16)
	iv := make([]byte, 16)
	if _, err := rand.Read(key); err != nil {
		log.Error("generating key", "err", err)
		os.Exit(1)
	}
	if _, err := rand.Read(iv); err != nil {
		log.Error("generating iv", "err", err)
		os.Exit(1)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		log.Error("creating cipher", "err", err)
		os.Exit(1)
	}

	padded := pkcs7.Pad([]byte(secret))
	challenge := make([]byte, 16+len(padded))
	copy(challenge, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(challenge[16:], padded)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("listening", "addr", addr, "err", err)
		os.Exit(1)
	}
	log.Info("oracle listening", "addr", ln.Addr().String(), "blocks", len(challenge)/16)

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Error("accept", "err", err)
			continue
		}
		go serve(conn, block, challenge)
	}
}

func serve(conn net.Conn, block cipher.Block, challenge []byte) {
	defer conn.Close()
	log := logging.Logger
	log.Debug("client connected", "remote", conn.RemoteAddr().String())

	fmt.Fprintf(conn, "The Oracle awaits.\nProphecy (HEX): %s\n> ", hex.EncodeToString(challenge))

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 64*1024), 64*1024)
	queries := 0
	for sc.Scan() {
		queries++
		raw, err := hex.DecodeString(sc.Text())
		if err != nil || len(raw) < 32 || len(raw)%16 != 0 {
			fmt.Fprint(conn, "Malformed offering. Invalid Padding.\n> ")
			continue
		}

		plain := make([]byte, len(raw)-16)
		cipher.NewCBCDecrypter(block, raw[:16]).CryptBlocks(plain, raw[16:])

		if pkcs7.Valid(plain) {
			fmt.Fprint(conn, "Valid Padding.\n> ")
		} else {
			fmt.Fprint(conn, "Invalid Padding.\n> ")
		}
	}
	log.Debug("client gone", "remote", conn.RemoteAddr().String(), "queries", queries)
}
