package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/ComedicChimera/olive"

	"ykcfg/common"
	"ykcfg/embed"
	"ykcfg/logging"
	"ykcfg/profile"
)

// Execute runs the main `ykcfg` application
func Execute() {
	// an interrupted build must not leave section files and objects behind
	handleInterrupts()

	// set up the argument parser and all its extended commands and arguments
	cli := olive.NewCLI("ykcfg", "ykcfg exports control flow graphs into linkable objects", true)
	logLvlArg := cli.AddSelectorArg("loglevel", "ll", "the log level", false, []string{"silent", "error", "warn", "verbose"})
	logLvlArg.SetDefaultValue("verbose")

	buildCmd := cli.AddSubcommand("build", "export the CFG of a project and link it", true)
	buildCmd.AddPrimaryArg("project-path", "the path to the project to build", true)
	buildCmd.AddStringArg("profile", "p", "the name of the profile to build", false)

	dumpCmd := cli.AddSubcommand("dump", "print the CFG records of an object or raw section", true)
	dumpCmd.AddPrimaryArg("file-path", "the object or raw section file to read", true)
	dumpCmd.AddFlag("raw", "r", "read the file as a raw section instead of an object")
	archArg := dumpCmd.AddSelectorArg("arch", "a", "the architecture a raw section was laid out for", false, []string{"amd64", "386", "arm64", "arm", "riscv64"})
	archArg.SetDefaultValue(runtime.GOARCH)

	initCmd := cli.AddSubcommand("init", "initialize a project", true)
	initCmd.AddPrimaryArg("project-path", "the path to the project directory", true)
	initCmd.AddStringArg("name", "n", "the name of the project (defaults to the directory name)", false)
	hostArg := initCmd.AddSelectorArg("host", "H", "the host the project is read with", false, []string{profile.HostGoSSA, profile.HostFixture})
	hostArg.SetDefaultValue(profile.HostGoSSA)

	cli.AddSubcommand("version", "print the ykcfg version", false)

	// run the argument parser
	result, err := olive.ParseArgs(cli, os.Args)
	if err != nil {
		logging.PrintErrorMessage("CLI Usage Error", err)
		os.Exit(1)
	}

	// process the inputed command line
	loglevel := result.Arguments["loglevel"].(string)
	subcmdName, subResult, _ := result.Subcommand()

	var ok bool
	switch subcmdName {
	case "build":
		ok = execBuildCommand(subResult, loglevel)
	case "dump":
		ok = execDumpCommand(subResult)
	case "init":
		ok = execInitCommand(subResult)
	case "version":
		logging.PrintInfoMessage("ykcfg Version", common.YkVersion)
		ok = true
	}

	if !ok {
		os.Exit(1)
	}
}

// execBuildCommand executes the build subcommand and handles all errors
func execBuildCommand(result *olive.ArgParseResult, loglevel string) bool {
	// extract CLI data
	projRelPath, _ := result.PrimaryArg()

	projPath, err := filepath.Abs(projRelPath)
	if err != nil {
		logging.PrintErrorMessage("Path Error", err)
		return false
	}

	profArgVal, ok := result.Arguments["profile"]
	selectedProfile := ""
	if ok {
		selectedProfile = profArgVal.(string)
	}

	// initialize the logger
	logging.Initialize(loglevel)

	// attempt to load the project
	proj, prof, err := profile.LoadProject(projPath, selectedProfile)
	if err != nil {
		logging.PrintErrorMessage("Project Load Error", err)
		return false
	}

	logging.LogBuildHeader(proj.Name, prof.Name, prof.Platform.String())

	// a panicking provider must not leave scratch files behind
	defer func() {
		if r := recover(); r != nil {
			embed.RemoveScratch()
			logging.LogFatal(fmt.Sprint(r))
		}
	}()

	if err := buildProject(proj, prof); err != nil {
		logging.LogBuildError("Build", err)
	}

	return logging.LogFinished()
}

// execDumpCommand executes the dump subcommand and handles all errors
func execDumpCommand(result *olive.ArgParseResult) bool {
	filePath, _ := result.PrimaryArg()

	arch := runtime.GOARCH
	if archArgVal, ok := result.Arguments["arch"]; ok {
		arch = archArgVal.(string)
	}

	if err := dumpFile(filePath, result.HasFlag("raw"), arch); err != nil {
		logging.PrintErrorMessage("Dump Error", err)
		return false
	}

	return true
}

// execInitCommand executes the init subcommand and handles all errors
func execInitCommand(result *olive.ArgParseResult) bool {
	projRelPath, _ := result.PrimaryArg()

	projPath, err := filepath.Abs(projRelPath)
	if err != nil {
		logging.PrintErrorMessage("Path Error", err)
		return false
	}

	name := filepath.Base(projPath)
	if nameArgVal, ok := result.Arguments["name"]; ok {
		name = nameArgVal.(string)
	}

	host := profile.HostGoSSA
	if hostArgVal, ok := result.Arguments["host"]; ok {
		host = hostArgVal.(string)
	}

	if err := os.MkdirAll(projPath, 0755); err != nil {
		logging.PrintErrorMessage("Project Init Error", err)
		return false
	}

	if err := profile.InitProject(name, projPath, host); err != nil {
		logging.PrintErrorMessage("Project Init Error", err)
		return false
	}

	logging.PrintInfoMessage("Project Created", filepath.Join(projPath, common.ProjectFileName))
	return true
}

// -----------------------------------------------------------------------------

// handleInterrupts removes every scratch file when the process is interrupted
func handleInterrupts() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigs
		logging.EndPhase(false)
		embed.RemoveScratch()
		os.Exit(130)
	}()
}
