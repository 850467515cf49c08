/*
 * Copyright 2022 Medicines Discovery Catapult
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *     http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package lib

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const configFlag = "config"

type BaseConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

/**
	InitializeConfig standardises config initialization across all apps.

	Usage:

	Config can be specified in a yml file. By default this is located at the defaultPath argument, but can be overridden
	with the --config flag, which should contain a filepath. For example, if defaultPath is "./config/iaa.yml",
	then a k8s config map with an iaa.yml key could be mounted to $(pwd)/config so that the config map
	is available at the path.

	Flags registered on pflag.CommandLine before the call are bound too, so a flag given on the command line wins
	over the yml file, which wins over defaultConfig. Flag names use "_" like the yml keys.

	Env vars can be used to overwrite config keys IF the env var has the same name as a key that viper knows about
	(the env var must be uppercased, with "." replaced by "_").

	Args:
	defaultPath is the default relative
	or absolute path to the config file. This is overridden with the --config flag.

	defaultConfig is the default config, defined as a map[string]interface{} within the code itself.
	It should be defined close to the "main" function and should be set up for local development.

	targetStruct should be a pointer to a struct which the config can be unmarshalled to.
**/

func InitializeConfig(defaultPath string, defaultConfig map[string]interface{}, targetStruct interface{}) error {
	return InitializeConfigFrom(pflag.CommandLine, os.Args[1:], defaultPath, defaultConfig, targetStruct)
}

// InitializeConfigFrom is InitializeConfig for an explicit flag set and argument list.
// Positional arguments are left on the flag set (fs.Args()). A flag set that is
// already parsed is used as it is and args are ignored.
func InitializeConfigFrom(fs *pflag.FlagSet, args []string, defaultPath string, defaultConfig map[string]interface{}, targetStruct interface{}) error {

	// load the config flag argument into viper
	if fs.Lookup(configFlag) == nil {
		fs.String(configFlag, defaultPath, "The config file path.")
	}
	if !fs.Parsed() {
		if err := fs.Parse(args); err != nil {
			return err
		}
	}

	v := viper.New()
	err := v.BindPFlags(fs)
	if err != nil {
		return err
	}

	// load the config filepath from viper
	configFile := v.GetString(configFlag)

	if !filepath.IsAbs(configFile) {
		configFile, err = filepath.Abs(configFile)
		if err != nil {
			return err
		}
	}

	// set viper's default config using defaultConfig
	for k, val := range defaultConfig {
		v.SetDefault(k, val)
	}

	// set the name for the config file
	v.SetConfigName(strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile)))
	v.AddConfigPath(filepath.Dir(configFile))

	// tell viper to prefer env vars over config keys. An env var must ALSO exist as a key in
	// viper's config for viper to be able to read the env var.
	v.AutomaticEnv()

	// rewrite env var names to use "_" instead of "." when reading env vars
	// this means that the env var SERVER_HTTP_PORT is used in the config struct as Server.HttpPort
	repl := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(repl)

	// now we are ready to read the config into viper - we have told it where to look for it with `addConfigPath()`
	err = v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		log.Debug().Str("path", configFile).Msg("no config file, default settings applied")
	} else if err != nil {
		return err
	}

	var bc BaseConfig
	err = v.Unmarshal(&bc)
	if err != nil {
		return err
	}

	if bc.LogLevel != "" {
		lvl, err := zerolog.ParseLevel(bc.LogLevel)
		if err != nil {
			return err
		}
		zerolog.SetGlobalLevel(lvl)
	}

	// unmarshal config into struct
	if err := v.Unmarshal(targetStruct); err != nil {
		return err
	}

	return nil
}
