// Package main generates a development CA and an auth server certificate,
// writing them to files under the output directory. An existing CA is reused.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinyakov/docchat/internal/certgen"
)

func main() {
	var (
		dir   string
		hosts string
	)
	flag.StringVar(&dir, "dir", "certs", "output directory")
	flag.StringVar(&hosts, "hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	flag.Parse()

	if err := run(dir, strings.Split(hosts, ",")); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Certificates generated into ./%s\n", dir)
}

// run writes ca.crt, ca.key, server.crt and server.key into dir.
func run(dir string, hosts []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	caCert, caKey := filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key")

	ca, err := certgen.Load(caCert, caKey)
	if errors.Is(err, os.ErrNotExist) {
		ca, err = certgen.NewCA("DocChat Dev CA", 10*365*24*time.Hour)
		if err == nil {
			err = ca.WriteFiles(caCert, caKey)
		}
	}
	if err != nil {
		return err
	}

	srv, err := ca.IssueServer(hosts, 365*24*time.Hour)
	if err != nil {
		return err
	}
	return srv.WriteFiles(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"))
}
