/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config provides configuration management for the launcher.
// config 包提供启动器的配置管理功能。
//
// Configuration loading priority (highest to lowest):
// 配置加载优先级（从高到低）：
// 1. Command line arguments / 命令行参数
// 2. Environment variables / 环境变量
// 3. Configuration file / 配置文件
// 4. Default values / 默认值
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values
// 默认配置值
const (
	DefaultConfigPath       = "/etc/launcherx/config.yaml"
	DefaultInterpreter      = "python3"
	DefaultChannelPrefix    = "launcherx"
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultHeartbeatRate    = 1 * time.Second
	DefaultShutdownGrace    = 10 * time.Second
	DefaultTerminalControl  = "auto"
	DefaultLogLevel         = "info"
	DefaultLogFile          = ""
	DefaultLogMaxSize       = 100 // MB
	DefaultLogMaxBackups    = 3
	DefaultLogMaxAge        = 7 // days
)

// Config represents the launcher configuration
// Config 表示启动器配置
type Config struct {
	// Runtime configuration for the supervised worker / 受监管 worker 的运行时配置
	Runtime RuntimeConfig `mapstructure:"runtime"`

	// Channel configuration / 通道配置
	Channel ChannelConfig `mapstructure:"channel"`

	// Handshake configuration / 握手配置
	Handshake HandshakeConfig `mapstructure:"handshake"`

	// Heartbeat configuration / 心跳配置
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat"`

	// Shutdown configuration / 关闭配置
	Shutdown ShutdownConfig `mapstructure:"shutdown"`

	// Terminal window configuration / 终端窗口配置
	Terminal TerminalConfig `mapstructure:"terminal"`

	// Log configuration / 日志配置
	Log LogConfig `mapstructure:"log"`
}

// RuntimeConfig describes how the worker process is started
// RuntimeConfig 描述 worker 进程的启动方式
type RuntimeConfig struct {
	// Interpreter is the executable that runs the worker script
	// Interpreter 是运行 worker 脚本的可执行文件
	Interpreter string `mapstructure:"interpreter"`

	// Args are interpreter arguments inserted before the script path
	// Args 是插入到脚本路径之前的解释器参数
	Args []string `mapstructure:"args"`

	// LibDir is prepended to PYTHONPATH for the worker (optional)
	// LibDir 会被前置到 worker 的 PYTHONPATH（可选）
	LibDir string `mapstructure:"lib_dir"`
}

// ChannelConfig controls where and how channel objects are created
// ChannelConfig 控制通道对象的创建位置和方式
type ChannelConfig struct {
	// Prefix is the channel name prefix shared by one launcher deployment
	// Prefix 是同一启动器部署共享的通道名称前缀
	Prefix string `mapstructure:"prefix"`

	// Dir is the directory holding channel objects (defaults to the OS temp dir)
	// Dir 是存放通道对象的目录（默认为操作系统临时目录）
	Dir string `mapstructure:"dir"`
}

// HandshakeConfig bounds the wait for worker attachment
// HandshakeConfig 限定等待 worker 接入的时长
type HandshakeConfig struct {
	// Timeout is the maximum wait for the worker to open its channel ends
	// Timeout 是等待 worker 打开其通道端点的最长时间
	Timeout time.Duration `mapstructure:"timeout"`
}

// HeartbeatConfig contains heartbeat settings
// HeartbeatConfig 包含心跳设置
type HeartbeatConfig struct {
	// Interval is the heartbeat interval
	// Interval 是心跳间隔
	Interval time.Duration `mapstructure:"interval"`
}

// ShutdownConfig bounds cooperative shutdown
// ShutdownConfig 限定协作式关闭
type ShutdownConfig struct {
	// Grace is how long the worker may run after the shutdown token before
	// it is killed
	// Grace 是发送关闭令牌后 worker 在被杀死前可继续运行的时长
	Grace time.Duration `mapstructure:"grace"`
}

// TerminalConfig contains terminal window settings
// TerminalConfig 包含终端窗口设置
type TerminalConfig struct {
	// Control selects the window controller: auto, xterm, or off
	// Control 选择窗口控制器：auto、xterm 或 off
	Control string `mapstructure:"control"`
}

// LogConfig contains logging settings
// LogConfig 包含日志设置
type LogConfig struct {
	// Level is the log level (debug, info, warn, error)
	// Level 是日志级别（debug, info, warn, error）
	Level string `mapstructure:"level"`

	// File is the log file path; empty disables file logging entirely so
	// the terminal carries nothing but relayed worker output
	// File 是日志文件路径；为空则完全禁用文件日志，
	// 使终端只承载转发的 worker 输出
	File string `mapstructure:"file"`

	// MaxSize is the maximum size of log file in MB before rotation
	// MaxSize 是日志文件轮转前的最大大小（MB）
	MaxSize int `mapstructure:"max_size"`

	// MaxBackups is the maximum number of old log files to retain
	// MaxBackups 是保留的旧日志文件的最大数量
	MaxBackups int `mapstructure:"max_backups"`

	// MaxAge is the maximum number of days to retain old log files
	// MaxAge 是保留旧日志文件的最大天数
	MaxAge int `mapstructure:"max_age"`
}

// Load loads configuration from file and environment variables
// Load 从文件和环境变量加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values / 设置默认值
	setDefaults(v)

	// Set config file path / 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Check environment variable / 检查环境变量
		envPath := os.Getenv("LAUNCHERX_CONFIG_PATH")
		if envPath != "" {
			v.SetConfigFile(envPath)
		} else {
			v.SetConfigFile(DefaultConfigPath)
		}
	}

	// Enable environment variable override / 启用环境变量覆盖
	v.SetEnvPrefix("LAUNCHERX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file / 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error if we have defaults
		// 如果有默认值，配置文件未找到不是错误
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			// Check if file exists / 检查文件是否存在
			if _, statErr := os.Stat(v.ConfigFileUsed()); statErr == nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// File doesn't exist, use defaults / 文件不存在，使用默认值
		}
	}

	// Unmarshal config / 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// Runtime defaults / 运行时默认值
	v.SetDefault("runtime.interpreter", DefaultInterpreter)
	v.SetDefault("runtime.args", []string{})
	v.SetDefault("runtime.lib_dir", "")

	// Channel defaults / 通道默认值
	v.SetDefault("channel.prefix", DefaultChannelPrefix)
	v.SetDefault("channel.dir", "")

	// Handshake defaults / 握手默认值
	v.SetDefault("handshake.timeout", DefaultHandshakeTimeout)

	// Heartbeat defaults / 心跳默认值
	v.SetDefault("heartbeat.interval", DefaultHeartbeatRate)

	// Shutdown defaults / 关闭默认值
	v.SetDefault("shutdown.grace", DefaultShutdownGrace)

	// Terminal defaults / 终端默认值
	v.SetDefault("terminal.control", DefaultTerminalControl)

	// Log defaults / 日志默认值
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.file", DefaultLogFile)
	v.SetDefault("log.max_size", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age", DefaultLogMaxAge)
}

// Validate validates the configuration
// Validate 验证配置
func (c *Config) Validate() error {
	// Validate interpreter / 验证解释器
	if strings.TrimSpace(c.Runtime.Interpreter) == "" {
		return errors.New("runtime.interpreter is required")
	}

	// Validate channel prefix: it becomes part of a filename
	// 验证通道前缀：它会成为文件名的一部分
	if c.Channel.Prefix == "" {
		return errors.New("channel.prefix is required")
	}
	if strings.ContainsAny(c.Channel.Prefix, "/\\") {
		return fmt.Errorf("channel.prefix must not contain path separators: %s", c.Channel.Prefix)
	}

	// Validate handshake timeout / 验证握手超时
	if c.Handshake.Timeout < 100*time.Millisecond {
		return errors.New("handshake.timeout must be at least 100ms")
	}

	// Validate heartbeat interval / 验证心跳间隔
	if c.Heartbeat.Interval < 10*time.Millisecond {
		return errors.New("heartbeat.interval must be at least 10ms")
	}

	// Validate shutdown grace / 验证关闭宽限
	if c.Shutdown.Grace < 0 {
		return errors.New("shutdown.grace must not be negative")
	}

	// Validate terminal control mode / 验证终端控制模式
	validModes := map[string]bool{"auto": true, "xterm": true, "off": true}
	if !validModes[strings.ToLower(c.Terminal.Control)] {
		return fmt.Errorf("invalid terminal control mode: %s (must be auto, xterm, or off)", c.Terminal.Control)
	}

	// Validate log level / 验证日志级别
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	return nil
}

// String returns a string representation of the config (for debugging)
// String 返回配置的字符串表示（用于调试）
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Runtime.Interpreter: %s, Channel.Prefix: %s, Handshake.Timeout: %v, Heartbeat.Interval: %v, Log.Level: %s}",
		c.Runtime.Interpreter,
		c.Channel.Prefix,
		c.Handshake.Timeout,
		c.Heartbeat.Interval,
		c.Log.Level,
	)
}

// ToYAML serializes the configuration to YAML format
// ToYAML 将配置序列化为 YAML 格式
func (c *Config) ToYAML() ([]byte, error) {
	// Build YAML structure manually to ensure proper formatting
	// 手动构建 YAML 结构以确保正确的格式
	yamlContent := fmt.Sprintf(`runtime:
  interpreter: "%s"
  args:
%s  lib_dir: "%s"

channel:
  prefix: "%s"
  dir: "%s"

handshake:
  timeout: %s

heartbeat:
  interval: %s

shutdown:
  grace: %s

terminal:
  control: "%s"

log:
  level: "%s"
  file: "%s"
  max_size: %d
  max_backups: %d
  max_age: %d
`,
		c.Runtime.Interpreter,
		formatArgs(c.Runtime.Args),
		c.Runtime.LibDir,
		c.Channel.Prefix,
		c.Channel.Dir,
		c.Handshake.Timeout.String(),
		c.Heartbeat.Interval.String(),
		c.Shutdown.Grace.String(),
		c.Terminal.Control,
		c.Log.Level,
		c.Log.File,
		c.Log.MaxSize,
		c.Log.MaxBackups,
		c.Log.MaxAge,
	)
	return []byte(yamlContent), nil
}

// formatArgs formats the interpreter args slice for YAML output
// formatArgs 格式化解释器参数切片用于 YAML 输出
func formatArgs(args []string) string {
	if len(args) == 0 {
		return "    []\n"
	}
	result := ""
	for _, arg := range args {
		result += fmt.Sprintf("    - \"%s\"\n", arg)
	}
	return result
}

// LoadFromYAML loads configuration from YAML bytes
// LoadFromYAML 从 YAML 字节加载配置
func LoadFromYAML(yamlData []byte) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults first / 首先设置默认值
	setDefaults(v)

	// Read from bytes / 从字节读取
	if err := v.ReadConfig(strings.NewReader(string(yamlData))); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Unmarshal config / 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Equal compares two configs for equality
// Equal 比较两个配置是否相等
func (c *Config) Equal(other *Config) bool {
	if c == nil || other == nil {
		return c == other
	}

	// Compare Runtime / 比较 Runtime
	if c.Runtime.Interpreter != other.Runtime.Interpreter ||
		c.Runtime.LibDir != other.Runtime.LibDir {
		return false
	}
	if len(c.Runtime.Args) != len(other.Runtime.Args) {
		return false
	}
	for i, arg := range c.Runtime.Args {
		if arg != other.Runtime.Args[i] {
			return false
		}
	}

	// Compare Channel / 比较 Channel
	if c.Channel.Prefix != other.Channel.Prefix ||
		c.Channel.Dir != other.Channel.Dir {
		return false
	}

	// Compare Handshake and Heartbeat / 比较 Handshake 和 Heartbeat
	if c.Handshake.Timeout != other.Handshake.Timeout ||
		c.Heartbeat.Interval != other.Heartbeat.Interval {
		return false
	}

	// Compare Shutdown and Terminal / 比较 Shutdown 和 Terminal
	if c.Shutdown.Grace != other.Shutdown.Grace ||
		c.Terminal.Control != other.Terminal.Control {
		return false
	}

	// Compare Log / 比较 Log
	if c.Log.Level != other.Log.Level ||
		c.Log.File != other.Log.File ||
		c.Log.MaxSize != other.Log.MaxSize ||
		c.Log.MaxBackups != other.Log.MaxBackups ||
		c.Log.MaxAge != other.Log.MaxAge {
		return false
	}

	return true
}

// LoadWithPriority loads configuration with explicit priority handling
// LoadWithPriority 使用显式优先级处理加载配置
// Priority: cmdArgs > envVars > configFile > defaults
// 优先级：命令行参数 > 环境变量 > 配置文件 > 默认值
func LoadWithPriority(configPath string, cmdArgs map[string]interface{}) (*Config, error) {
	v := viper.New()

	// Set default values / 设置默认值
	setDefaults(v)

	// Set config file path / 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Check environment variable / 检查环境变量
		envPath := os.Getenv("LAUNCHERX_CONFIG_PATH")
		if envPath != "" {
			v.SetConfigFile(envPath)
		} else {
			v.SetConfigFile(DefaultConfigPath)
		}
	}

	// Enable environment variable override / 启用环境变量覆盖
	v.SetEnvPrefix("LAUNCHERX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file / 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			if _, statErr := os.Stat(v.ConfigFileUsed()); statErr == nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Apply command line arguments (highest priority)
	// 应用命令行参数（最高优先级）
	for key, value := range cmdArgs {
		v.Set(key, value)
	}

	// Unmarshal config / 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
