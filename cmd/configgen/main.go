package main

import (
	"flag"
	"log"

	"github.com/danmuck/teachctl/internal/config"
)

func main() {
	rawKind := flag.String("kind", "teachctl", "config kind: teachctl|ghostsim")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	kind, err := config.ParseKind(*rawKind)
	if err != nil {
		log.Fatal(err)
	}

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath(kind)
		}
		if err := config.Validate(kind, path); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated %s config at %s", kind, path)
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(kind)
	}
	if err := config.WriteTemplate(target, kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", kind, target)
}

func defaultPath(kind config.Kind) string {
	return "cmd/" + string(kind) + "/config.toml"
}
