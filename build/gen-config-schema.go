package main

import (
	"bytes"
	"flag"
	"log"
	"os"

	"github.com/sebas5384/now-builders/internal/config"
)

func main() {
	check := flag.Bool("check", false, "fail if the schema file is out of date instead of writing it")
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatalf("usage: %s [-check] path/to/schema.json", os.Args[0])
	}
	target := flag.Arg(0)

	bs, err := config.ReflectSchema()
	if err != nil {
		panic(err)
	}

	if *check {
		existing, err := os.ReadFile(target)
		if err != nil {
			log.Fatal(err)
		}
		if !bytes.Equal(bytes.TrimSpace(existing), bytes.TrimSpace(bs)) {
			log.Fatalf("%s is out of date, run go generate ./config", target)
		}
		return
	}

	if err := os.WriteFile(target, bs, 0644); err != nil {
		panic(err)
	}
}
