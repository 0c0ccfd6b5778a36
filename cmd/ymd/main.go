// Command ymd stores files as chunked mail attachments on an IMAP
// account and retrieves them again.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/mathieures/ymd/pkg/config"
	"github.com/mathieures/ymd/pkg/display"
	"github.com/mathieures/ymd/pkg/drive"
	"github.com/mathieures/ymd/pkg/logging"
)

const usage = `Usage: ymd <command> [options]

Commands:
  list, ls            list the stored files
  download, d         download a stored file
  upload, u           upload a local file or folder
  remove, rm          remove a stored file or folder
  list-folders, lsf   list the account folders

Global options (accepted by every command):
  -c, --credentials   path of the credentials file to use
  -f, --folder        name of the destination folder
  --connections       number of parallel connections to open
  --debug             enable debug logs
`

// aliases maps each short command name to its canonical one.
var aliases = map[string]string{
	"ls":  "list",
	"d":   "download",
	"u":   "upload",
	"rm":  "remove",
	"lsf": "list-folders",
}

type globalOptions struct {
	credentials string
	folder      string
	debug       bool
	connections int
}

func registerGlobals(fs *flag.FlagSet, opts *globalOptions) {
	defaultCredentials := config.DefaultCredentialsLocations()[0]
	fs.StringVar(&opts.credentials, "c", defaultCredentials, "path of the credentials file to use")
	fs.StringVar(&opts.credentials, "credentials", defaultCredentials, "path of the credentials file to use")
	fs.StringVar(&opts.folder, "f", config.DefaultTargetFolder, "name of the destination folder")
	fs.StringVar(&opts.folder, "folder", config.DefaultTargetFolder, "name of the destination folder")
	fs.BoolVar(&opts.debug, "debug", false, "enable debug logs")
	fs.IntVar(&opts.connections, "connections", config.DefaultConnections, "number of parallel connections to open")
}

func main() {
	// A .env file is optional; variables already in the environment win.
	godotenv.Load()

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ymd: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("no command given")
	}

	command := args[0]
	if canonical, ok := aliases[command]; ok {
		command = canonical
	}

	switch command {
	case "list":
		return runList(args[1:])
	case "download":
		return runDownload(args[1:])
	case "upload":
		return runUpload(args[1:])
	case "remove":
		return runRemove(args[1:])
	case "list-folders":
		return runListFolders(args[1:])
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// openDrive resolves credentials and dials the session pool. The caller
// must Close the returned drive.
func openDrive(opts *globalOptions) (*drive.Drive, error) {
	log := logging.New(opts.debug)

	creds, err := config.FindCredentials(opts.credentials)
	if err != nil {
		return nil, err
	}

	d, err := drive.New(context.Background(), creds.Address, creds.Password, opts.folder, opts.connections, log)
	if err != nil {
		return nil, err
	}
	d.SetProgress(display.Progress(os.Stdout))
	return d, nil
}

func runList(args []string) error {
	var opts globalOptions
	var long bool
	var maxDepth int

	fs := flag.NewFlagSet("list", flag.ExitOnError)
	registerGlobals(fs, &opts)
	fs.BoolVar(&long, "l", false, "output more information about the files")
	fs.BoolVar(&long, "long", false, "output more information about the files")
	fs.IntVar(&maxDepth, "max-depth", drive.UnlimitedDepth, "limit the subfolder recursion depth")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := openDrive(&opts)
	if err != nil {
		return err
	}
	defer d.Close()

	files, err := d.Files(maxDepth)
	if err != nil {
		return err
	}
	display.PrintFiles(os.Stdout, files, long)
	return nil
}

func runDownload(args []string) error {
	var opts globalOptions

	fs := flag.NewFlagSet("download", flag.ExitOnError)
	registerGlobals(fs, &opts)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: ymd download <file> <dest>")
	}

	d, err := openDrive(&opts)
	if err != nil {
		return err
	}
	defer d.Close()

	return d.Download(fs.Arg(0), fs.Arg(1))
}

func runUpload(args []string) error {
	var opts globalOptions
	var startChunk int

	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	registerGlobals(fs, &opts)
	fs.IntVar(&startChunk, "start-chunk", 0, "start upload from the given chunk number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: ymd upload <file-or-folder>")
	}

	d, err := openDrive(&opts)
	if err != nil {
		return err
	}
	defer d.Close()

	return d.Upload(fs.Arg(0), startChunk)
}

func runRemove(args []string) error {
	var opts globalOptions
	var recurse bool

	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	registerGlobals(fs, &opts)
	fs.BoolVar(&recurse, "r", false, "delete folders recursively")
	fs.BoolVar(&recurse, "recurse", false, "delete folders recursively")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: ymd remove <file-or-folder>")
	}

	d, err := openDrive(&opts)
	if err != nil {
		return err
	}
	defer d.Close()

	return d.Remove(fs.Arg(0), recurse)
}

func runListFolders(args []string) error {
	var opts globalOptions

	fs := flag.NewFlagSet("list-folders", flag.ExitOnError)
	registerGlobals(fs, &opts)
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := openDrive(&opts)
	if err != nil {
		return err
	}
	defer d.Close()

	folders, err := d.Folders()
	if err != nil {
		return err
	}
	if len(folders) > 0 {
		fmt.Println(strings.Join(folders, "\n"))
	}
	return nil
}
