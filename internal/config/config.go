// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bytefuse/webexport/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "webexport"
	// DefaultConfigFileName is the file name written by "config init".
	DefaultConfigFileName = "webexport.cue"
	// DockerfileName is the build file looked up inside the context directory.
	DockerfileName = "Dockerfile"

	// DefaultBaseURL is the default value of VITE_BASE_URL.
	DefaultBaseURL = "/api"
	// DefaultOSSRegion is the default value of VITE_OSS_REGION.
	DefaultOSSRegion = "cn-guangzhou"
	// DefaultOSSBucket is the default value of VITE_OSS_BUCKET.
	DefaultOSSBucket = "bytefuse"
	// DefaultBuildTarget is the multi-stage target that writes the bundle.
	DefaultBuildTarget = "export"

	// EnvBaseURL overrides the base URL build arg.
	EnvBaseURL = "VITE_BASE_URL"
	// EnvOSSRegion overrides the OSS region build arg.
	EnvOSSRegion = "VITE_OSS_REGION"
	// EnvOSSBucket overrides the OSS bucket build arg.
	EnvOSSBucket = "VITE_OSS_BUCKET"

	KeyBaseURL         = "base_url"
	KeyOSSRegion       = "oss_region"
	KeyOSSBucket       = "oss_bucket"
	KeyContextDir      = "context"
	KeyBuildFile       = "dockerfile"
	KeyDestDir         = "dest"
	KeyBuildTarget     = "target"
	KeyContainerEngine = "container_engine"
)

var (
	// BuildArgEnv lists the build arg settings in the order they are passed
	// to the engine, with the environment variable each one is read from.
	// The variable name doubles as the build arg key.
	BuildArgEnv = [...]struct{ Key, Env string }{
		{KeyBaseURL, EnvBaseURL},
		{KeyOSSRegion, EnvOSSRegion},
		{KeyOSSBucket, EnvOSSBucket},
	}

	// flagNames maps setting keys to their command-line flag names.
	flagNames = map[string]string{
		KeyBaseURL:         "base-url",
		KeyOSSRegion:       "oss-region",
		KeyOSSBucket:       "oss-bucket",
		KeyContextDir:      "context",
		KeyBuildFile:       "dockerfile",
		KeyDestDir:         "dest",
		KeyBuildTarget:     "target",
		KeyContainerEngine: "engine",
	}

	pathKeys = [...]string{KeyContextDir, KeyBuildFile, KeyDestDir}
)

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// Flags is the flag set populated by RegisterFlags. Only flags the user
	// changed take effect.
	Flags *pflag.FlagSet
	// ConfigFilePath is an optional CUE config file.
	ConfigFilePath string
	// EnvFiles are dotenv files read in order; later files win. A trailing
	// "?" marks a file as optional.
	EnvFiles []string
	// BaseDir replaces the tool directory when computing path defaults.
	BaseDir string
	// WorkDir resolves relative flag and env-file paths. Defaults to os.Getwd.
	WorkDir string
}

// RegisterFlags adds one flag per setting to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(flagNames[KeyBaseURL], "", fmt.Sprintf("value for %s (default %q)", EnvBaseURL, DefaultBaseURL))
	fs.String(flagNames[KeyOSSRegion], "", fmt.Sprintf("value for %s (default %q)", EnvOSSRegion, DefaultOSSRegion))
	fs.String(flagNames[KeyOSSBucket], "", fmt.Sprintf("value for %s (default %q)", EnvOSSBucket, DefaultOSSBucket))
	fs.String(flagNames[KeyContextDir], "", "build context directory (default <tool dir>/../admin)")
	fs.String(flagNames[KeyBuildFile], "", "Dockerfile path (default <context>/Dockerfile)")
	fs.String(flagNames[KeyDestDir], "", "directory that receives the exported files (default <tool dir>/web)")
	fs.String(flagNames[KeyBuildTarget], "", fmt.Sprintf("build target stage (default %q)", DefaultBuildTarget))
	fs.String(flagNames[KeyContainerEngine], "", "container engine: docker or podman (default \"docker\")")
}

// ToolDir returns the directory containing the running executable, with
// symlinks resolved.
func ToolDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// DefaultSettings returns the built-in settings for a tool living in baseDir.
// BuildFile is left empty; Load derives it from the resolved context.
func DefaultSettings(baseDir string) *Settings {
	return &Settings{
		BaseURL:         DefaultBaseURL,
		OSSRegion:       DefaultOSSRegion,
		OSSBucket:       DefaultOSSBucket,
		ContextDir:      filepath.Clean(filepath.Join(baseDir, "..", "admin")),
		DestDir:         filepath.Join(baseDir, "web"),
		BuildTarget:     DefaultBuildTarget,
		ContainerEngine: ContainerEngineDocker,
	}
}

// Load resolves the settings for one export run.
func Load(ctx context.Context, opts LoadOptions) (*Settings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	baseDir := opts.BaseDir
	if baseDir == "" {
		dir, err := ToolDir()
		if err != nil {
			return nil, loadError(err, "")
		}
		baseDir = dir
	}
	workDir := opts.WorkDir
	if workDir == "" {
		dir, err := os.Getwd()
		if err != nil {
			return nil, loadError(fmt.Errorf("failed to get working directory: %w", err), "")
		}
		workDir = dir
	}

	v := viper.New()
	v.AllowEmptyEnv(true)

	defaults := DefaultSettings(baseDir)
	v.SetDefault(KeyBaseURL, defaults.BaseURL)
	v.SetDefault(KeyOSSRegion, defaults.OSSRegion)
	v.SetDefault(KeyOSSBucket, defaults.OSSBucket)
	v.SetDefault(KeyContextDir, defaults.ContextDir)
	v.SetDefault(KeyDestDir, defaults.DestDir)
	v.SetDefault(KeyBuildTarget, defaults.BuildTarget)
	v.SetDefault(KeyContainerEngine, string(defaults.ContainerEngine))

	if opts.ConfigFilePath != "" {
		path := resolvePath(workDir, opts.ConfigFilePath)
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, loadError(err, path)
		}
	}

	// Merged after the config file so env file values win over it.
	if len(opts.EnvFiles) > 0 {
		envValues, err := readEnvFiles(workDir, opts.EnvFiles)
		if err != nil {
			return nil, err
		}
		if len(envValues) > 0 {
			if err := v.MergeConfigMap(envValues); err != nil {
				return nil, loadError(fmt.Errorf("failed to merge env files: %w", err), "")
			}
		}
	}

	for _, b := range BuildArgEnv {
		if err := v.BindEnv(b.Key, b.Env); err != nil {
			return nil, loadError(err, "")
		}
	}

	if opts.Flags != nil {
		for key, name := range flagNames {
			f := opts.Flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, loadError(err, "")
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, loadError(fmt.Errorf("failed to decode settings: %w", err), "")
	}

	s.ContextDir = resolvePath(workDir, s.ContextDir)
	s.DestDir = resolvePath(workDir, s.DestDir)
	if strings.TrimSpace(s.BuildFile) == "" {
		s.BuildFile = filepath.Join(s.ContextDir, DockerfileName)
	} else {
		s.BuildFile = resolvePath(workDir, s.BuildFile)
	}

	if isValid, errs := s.IsValid(); !isValid {
		return nil, loadError(errs[0], "")
	}
	return &s, nil
}

// readEnvFiles reads the build arg variables from dotenv files. Other
// variables in the files are ignored.
func readEnvFiles(workDir string, files []string) (map[string]any, error) {
	values := make(map[string]any)
	for _, file := range files {
		optional := strings.HasSuffix(file, "?")
		path := resolvePath(workDir, strings.TrimSuffix(file, "?"))

		env, err := godotenv.Read(path)
		if err != nil {
			if optional && os.IsNotExist(err) {
				continue
			}
			return nil, issue.NewErrorContext().
				WithOperation("read env file").
				WithResource(path).
				WithSuggestion("Append '?' to the path to make the env file optional").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
		for _, b := range BuildArgEnv {
			if val, ok := env[b.Env]; ok {
				values[b.Key] = val
			}
		}
	}
	return values, nil
}

// resolvePath returns p as a clean absolute path, joining relative paths to base.
func resolvePath(base, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

func loadError(err error, resource string) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(resource).
		WithSuggestion("Run 'webexport config show' to inspect the resolved settings").
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(err).
		BuildError()
}
