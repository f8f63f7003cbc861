// Command xsdparse loads one or more XSD schema files, validates a
// document against them, and prints the normalized result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rs/zerolog"

	"github.com/CognitoIQ/xsdvalidate/xsd"
)

var (
	namespace = flag.String("ns", "", "namespace to associate the first schema file with (defaults to its own targetNamespace)")
	document  = flag.String("doc", "", "XML document to validate against the loaded schemas")
	download  = flag.Bool("download", false, "allow fetching schemaLocation hints over HTTP")
	verbose   = flag.Bool("v", false, "log schema acquisition progress to stderr")
	outNS     = flag.Bool("qualify", false, "qualify element/attribute names in the output with their namespace prefix")
)

func main() {
	log.SetFlags(0)
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatalf("Usage: %s [-ns xmlns] [-doc file.xml] file.xsd ...", os.Args[0])
	}

	logger := zerolog.Nop()
	if *verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	p := xsd.NewParser(xsd.Options{
		DownloadSchemas:     *download,
		OutputWithNamespace: *outNS,
		Logger:              logger,
	})

	for i, filename := range flag.Args() {
		data, err := os.ReadFile(filename)
		if err != nil {
			log.Fatal(err)
		}
		ns := ""
		if i == 0 {
			ns = *namespace
		}
		if err := p.AddSchema(ns, data); err != nil {
			log.Fatalf("%s: %v", filename, err)
		}
	}

	if *document == "" {
		known := p.KnownSchemas()
		for ns := range known {
			fmt.Println(ns)
		}
		return
	}

	doc, err := os.ReadFile(*document)
	if err != nil {
		log.Fatal(err)
	}

	if *download {
		if err := p.AddDocumentSchemas(context.Background(), doc); err != nil {
			log.Fatalf("%s: %v", *document, err)
		}
	}

	result, err := p.ParseString(doc)
	if err != nil {
		log.Fatalf("%s: %v", *document, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatal(err)
	}
}
