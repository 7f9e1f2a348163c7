package main

import (
	"github.com/orthoplus/crypto-settlement/internal/server"
)

func main() {
	server.Init()
}
