package app

import (
	"archive/zip"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"pycleaner/internal/core/config"
	"pycleaner/internal/core/errors"
	"pycleaner/internal/engine/graph"
	"pycleaner/internal/shared/util"
)

const removalQuestion = "Are you sure you want to proceed with removal of all the scripts?"

// Actions are the optional steps applied to a finished classification.
type Actions struct {
	Log        bool
	LibsLog    string
	ScriptsLog string
	// AbsPaths writes absolute paths to the log files.
	AbsPaths      bool
	Zip           string
	RemoveScripts bool
	AssumeYes     bool
}

// ActionsFromConfig takes the log, zip and path settings from cfg with the
// output files anchored as in paths.
func ActionsFromConfig(cfg *config.Config, paths config.ResolvedPaths) Actions {
	return Actions{
		Log:        cfg.Output.Log,
		LibsLog:    paths.LibsLog,
		ScriptsLog: paths.ScriptsLog,
		AbsPaths:   cfg.Report.AbsPaths,
		Zip:        paths.Zip,
	}
}

// Validate rejects removing scripts while zipping libraries in one run.
func (x Actions) Validate() error {
	if x.RemoveScripts && x.Zip != "" {
		return errors.New(errors.CodeConfiguration, "--rm-scripts and --zip-lib cannot be used together")
	}
	return nil
}

// Confirmer asks the user a yes/no question.
type Confirmer func(question string) (bool, error)

// ApplyActions runs the selected steps in order: logs, zip, removal.
// Removal needs a positive answer from confirm unless AssumeYes is set.
func ApplyActions(result *graph.Classification, x Actions, confirm Confirmer) error {
	if err := x.Validate(); err != nil {
		return err
	}

	if x.Log {
		if err := WriteLogs(result, x.LibsLog, x.ScriptsLog, x.AbsPaths); err != nil {
			return err
		}
	}
	if x.Zip != "" {
		if err := ZipFiles(result.Root, result.Libraries, x.Zip); err != nil {
			return err
		}
		slog.Info("libraries archived", "path", x.Zip, "files", len(result.Libraries))
	}
	if x.RemoveScripts {
		if len(result.Scripts) == 0 {
			return nil
		}
		if !x.AssumeYes {
			if confirm == nil {
				return errors.New(errors.CodeNotSupported, "script removal needs confirmation; pass --yes")
			}
			ok, err := confirm(removalQuestion)
			if err != nil {
				return err
			}
			if !ok {
				slog.Info("script removal cancelled")
				return nil
			}
		}
		if err := RemoveFiles(result.Scripts); err != nil {
			return err
		}
		slog.Info("scripts removed", "files", len(result.Scripts))
	}
	return nil
}

// WriteLogs writes the libraries and the scripts one path per line,
// root-relative unless abs is set.
func WriteLogs(result *graph.Classification, libsPath, scriptsPath string, abs bool) error {
	for path, files := range map[string][]string{libsPath: result.Libraries, scriptsPath: result.Scripts} {
		lines := files
		if !abs {
			lines = make([]string, 0, len(files))
			for _, file := range files {
				lines = append(lines, util.RelSlash(result.Root, file))
			}
		}
		if err := util.WriteLinesWithDirs(path, lines, 0o644); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "write log"), errors.CtxPath, path)
		}
	}
	return nil
}

// ZipFiles archives files under names relative to root, deflated.
func ZipFiles(root string, files []string, zipPath string) (err error) {
	if dir := filepath.Dir(zipPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "create zip directory"), errors.CtxPath, dir)
		}
	}
	out, err := os.Create(zipPath)
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "create zip"), errors.CtxPath, zipPath)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(out)
	for _, file := range files {
		if err := addToZip(zw, root, file); err != nil {
			_ = zw.Close()
			return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "add file to zip"), errors.CtxPath, file)
		}
	}
	return zw.Close()
}

func addToZip(zw *zip.Writer, root, file string) error {
	info, err := os.Stat(file)
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = util.RelSlash(root, file)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	in, err := os.Open(file)
	if err != nil {
		return err
	}
	defer in.Close()
	_, err = io.Copy(w, in)
	return err
}

// RemoveFiles deletes files, stopping at the first failure. Files that are
// already gone are skipped.
func RemoveFiles(files []string) error {
	for _, file := range files {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			return errors.AddContext(errors.Wrap(err, errors.CodePermissionDenied, "remove script"), errors.CtxPath, file)
		}
		slog.Debug("removed script", "path", file)
	}
	return nil
}
