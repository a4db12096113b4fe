/*
 * Signclient
 * Copyright (C) 2021. Signclient community
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/signclient/signclient/configuration"
	"github.com/signclient/signclient/logging"
	"github.com/signclient/signclient/pkg/jobs"
	"github.com/signclient/signclient/pkg/keystore"
	"github.com/signclient/signclient/pkg/pipeline"
	"github.com/signclient/signclient/pkg/services/dsig"
)

const appName = "signclient v0.1"

var configFile string

// runCmd represents the run command. One invocation is one batch run: the
// external scheduler is expected to trigger it periodically.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sign all outgoing documents once and exit",
	Long:  `Sign all outgoing documents once and exit. Per-document failures are routed to the error directory and do not fail the run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(configFile)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to the configuration file, overrides the default candidates")
}

func runBatch(configPath string) error {
	log := logging.Log()
	log.Infof("Starting %s", appName)

	cfg, err := configuration.Load(configPath)
	if err != nil {
		return err
	}
	log.Infof("Loaded configuration file '%s'", cfg.Source)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ksType, err := keystore.TypeFromString(cfg.Keystore.Type)
	if err != nil {
		return err
	}
	store, err := keystore.Load(ksType, cfg.Keystore.Path, cfg.Keystore.Password)
	if err != nil {
		return err
	}
	log.Infof("Successfully loaded keystore file '%s'", cfg.Keystore.Path)

	pair, err := store.PrivateKey(cfg.Keystore.Key.Alias, cfg.Keystore.Key.Password)
	if err != nil {
		return errors.Wrapf(err, "failed to load key '%s' from keystore '%s'", cfg.Keystore.Key.Alias, cfg.Keystore.Path)
	}
	log.Infof("Successfully loaded key '%s' from keystore '%s'", cfg.Keystore.Key.Alias, cfg.Keystore.Path)

	dirOutgoing, err := ensureDirectory(cfg.Directory.Outgoing)
	if err != nil {
		return err
	}
	log.Infof("Outgoing directory is '%s'", dirOutgoing)

	dirSuccess, err := ensureDirectory(cfg.Directory.Success)
	if err != nil {
		return err
	}
	log.Infof("Success directory is '%s'", dirSuccess)

	dirError, err := ensureDirectory(cfg.Directory.Error)
	if err != nil {
		return err
	}
	log.Infof("Error directory is '%s'", dirError)

	files, err := jobs.NewSource(dirOutgoing).Files()
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.Config{
		Signer:       dsig.NewSigner(),
		Validator:    dsig.NewValidator(),
		Builder:      dsig.NewVerifyRequestBuilder(),
		ConstantKey:  dsig.ConstantKeySelector{Certificate: pair.Certificate},
		ContainedKey: dsig.ContainedKeySelector{},
		Key:          pair.PrivateKey,
		Certificate:  pair.Certificate,
		Router:       pipeline.NewRouter(dirSuccess, dirError, log),
		Logger:       log,
	})
	result := p.Run(files)
	log.Infof("Finished %s: %d processed, %d succeeded, %d failed", appName, result.Processed, result.Succeeded, result.Failed)
	return nil
}

// ensureDirectory resolves a configured directory, creating it if needed.
func ensureDirectory(path string) (string, error) {
	if err := os.MkdirAll(path, os.ModePerm); err != nil {
		return "", errors.Wrapf(err, "the configured path '%s' could not be created as a directory", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrapf(err, "the configured path '%s' is not accessible", path)
	}
	if !info.IsDir() {
		return "", errors.Errorf("the configured path '%s' points to a non-directory", path)
	}
	return path, nil
}
