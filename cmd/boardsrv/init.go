package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/wtask/board/internal/board"
	"github.com/wtask/board/pkg/semver"
)

type (
	// Configuration - server configuration
	Configuration struct {
		// IPAddress - bind the address
		IPAddress string
		// Port - bind the port
		Port uint
		// HTTPAddress - status and WebSocket listen address, empty disables HTTP
		HTTPAddress string
		// Groups - group names, the first one is the default group
		Groups []string
		// OutboxSize - per-session notification buffer
		OutboxSize int
		// MaxLineSize - max length of client line in bytes
		MaxLineSize int
		// ArchiveURI - MongoDB connection string, empty disables archive
		ArchiveURI string
		// ArchiveDatabase - MongoDB database name
		ArchiveDatabase string
		// ArchiveCollection - MongoDB collection name
		ArchiveCollection string
		// LogLevel - min level of log records
		LogLevel slog.Level
	}
)

var (
	// Config - current configuration of the server
	Config = Configuration{
		IPAddress:         "",
		Port:              9999,
		Groups:            board.DefaultGroups,
		OutboxSize:        64,
		MaxLineSize:       4096,
		ArchiveDatabase:   "board",
		ArchiveCollection: "posts",
		LogLevel:          slog.LevelInfo,
	}

	// BinaryName - name of run application binary
	BinaryName = strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))

	// Version - app version fingerprint
	Version = semver.V{Minor: 1}.String()
)

// splitGroups - parses comma separated group list, empty items are skipped.
func splitGroups(list string) []string {
	groups := []string{}
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			groups = append(groups, name)
		}
	}
	return groups
}

func init() {
	out := flag.CommandLine.Output()
	printUsage := func() {
		fmt.Fprintf(out, "Launch bulletin board server over TCP\n\n\t%s [options]\nOptions:\n\n", BinaryName)
		flag.PrintDefaults()
		fmt.Fprint(out, "\n")
	}
	printError := func(msg string) {
		fmt.Fprintf(out, "%s (v%s) error:\n\n\t%s\n", BinaryName, Version, msg)
	}

	help, version := false, false
	flag.BoolVar(&help, "help", false, "Print usage help")
	flag.BoolVar(&version, "version", false, "Print version and exit")
	flag.StringVar(&Config.IPAddress, "ip", "", "Listen address")
	flag.UintVar(&Config.Port, "port", Config.Port, "Listen port")
	flag.StringVar(&Config.HTTPAddress, "http", "", "Status and WebSocket listen address, e.g. :8080. Disabled if empty.")
	groups := strings.Join(Config.Groups, ",")
	flag.StringVar(&groups, "groups", groups, "Comma separated group names, the first one is the default group.")
	flag.IntVar(&Config.OutboxSize, "outbox", Config.OutboxSize, "Num of pending notifications per client, extra notifications are dropped.")
	flag.IntVar(&Config.MaxLineSize, "max-line", Config.MaxLineSize, "Max length of client line in bytes, longer line disconnects client.")
	flag.StringVar(&Config.ArchiveURI, "archive-uri", "", "MongoDB URI to archive posted messages. Disabled if empty.")
	flag.StringVar(&Config.ArchiveDatabase, "archive-db", Config.ArchiveDatabase, "MongoDB database of archive.")
	flag.StringVar(&Config.ArchiveCollection, "archive-collection", Config.ArchiveCollection, "MongoDB collection of archive.")
	flag.TextVar(&Config.LogLevel, "log-level", Config.LogLevel, "Min log level: debug, info, warn or error.")

	flag.Parse()

	if help {
		printUsage()
		os.Exit(0)
	}
	if version {
		fmt.Fprintf(out, "%s v%s\n", BinaryName, Version)
		os.Exit(0)
	}

	if _, err := semver.Parse(Version); err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	if Config.Port == 0 || Config.Port > 65535 {
		printError("port value should be in range 1..65535")
		os.Exit(1)
	}
	if Config.Groups = splitGroups(groups); len(Config.Groups) == 0 {
		printError("groups value should contain at least one group")
		os.Exit(1)
	}
	if Config.OutboxSize < 1 {
		printError("outbox value should be greater or equal 1")
		os.Exit(1)
	}
	if Config.MaxLineSize < 64 {
		printError("max-line value should be greater or equal 64")
		os.Exit(1)
	}
	if Config.ArchiveURI != "" && (Config.ArchiveDatabase == "" || Config.ArchiveCollection == "") {
		printError("archive-db and archive-collection are required for archive")
		os.Exit(1)
	}

	fmt.Fprint(out, "Bulletin board server is launching, press Ctrl-C to stop...\n")
}
