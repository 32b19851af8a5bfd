package config

import (
	"flag"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type ServerCfg struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}
type MysqlCfg struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Database     string `mapstructure:"database"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Charset      string `mapstructure:"charset"`
	MaxIdleConns int    `mapstructure:"maxIdleConns"`
	MaxOpenConns int    `mapstructure:"maxOpenConns"`
	LogSQL       bool   `mapstructure:"logSql"`
}
type RabbitCfg struct {
	Enabled       bool   `mapstructure:"enabled"`
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	VirtualHost   string `mapstructure:"virtualHost"`
	PrefetchCount int    `mapstructure:"prefetchCount"`
}
type RedisCfg struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}
type SecurityCfg struct {
	InternalToken string `mapstructure:"internalToken"`
}

// GatewayCfg 第三方支付网关
type GatewayCfg struct {
	SubmitURL     string `mapstructure:"submitUrl"` // https://<host>/submit.php
	Pid           string `mapstructure:"pid"`
	Key           string `mapstructure:"key"`
	NotifyURL     string `mapstructure:"notifyUrl"`
	ReturnURL     string `mapstructure:"returnUrl"`
	PricePerToken string `mapstructure:"pricePerToken"`
	// NotifyIPWhitelist 回调来源白名单，支持单 IP / CIDR / 前缀通配，空为不限制
	NotifyIPWhitelist []string `mapstructure:"notifyIpWhitelist"`
}

type ReconcileCfg struct {
	Async            bool  `mapstructure:"async"`
	CallTimeoutSec   int   `mapstructure:"callTimeoutSec"`
	LockTTLSec       int   `mapstructure:"lockTtlSec"`
	LeaseSec         int   `mapstructure:"leaseSec"`
	MaxRetry         int   `mapstructure:"maxRetry"`
	NodeID           int64 `mapstructure:"nodeId"`
	SweepIntervalSec int   `mapstructure:"sweepIntervalSec"` // 0 关闭补偿扫描
	SweepBatch       int   `mapstructure:"sweepBatch"`
	Workers          int   `mapstructure:"workers"` // MQ 消费并发
}

type NotifyCfg struct {
	TelegramChatID string `mapstructure:"telegramChatId"`
}

type Root struct {
	Server     ServerCfg    `mapstructure:"server"`
	MysqlPay   MysqlCfg     `mapstructure:"mysql_pay"`
	MysqlUser  MysqlCfg     `mapstructure:"mysql_user"`
	RabbitMQ   RabbitCfg    `mapstructure:"rabbitmq"`
	Redis      RedisCfg     `mapstructure:"redis"`
	Security   SecurityCfg  `mapstructure:"security"`
	Gateway    GatewayCfg   `mapstructure:"gateway"`
	Reconcile  ReconcileCfg `mapstructure:"reconcile"`
	Notify     NotifyCfg    `mapstructure:"notify"`
	ShardCount int          `mapstructure:"shardCount"`
	// AutoMigrate 启动时建表，仅用于开发环境
	AutoMigrate bool `mapstructure:"autoMigrate"`
}

var C Root

func Init() {
	env := flag.String("env", "dev", "config env: dev|prod")
	flag.Parse()

	v := viper.New()
	v.SetConfigFile("config/config." + *env + ".yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("read config file failed: %v", err)
	}
	if err := v.Unmarshal(&C); err != nil {
		log.Fatalf("unmarshal config failed: %v", err)
	}
	C.ApplyDefaults()
}

// ApplyDefaults sane defaults
func (c *Root) ApplyDefaults() {
	if strings.TrimSpace(c.Server.Port) == "" {
		c.Server.Port = "8080"
	}
	if c.Reconcile.CallTimeoutSec <= 0 {
		c.Reconcile.CallTimeoutSec = 5
	}
	if c.Reconcile.LockTTLSec <= 0 {
		c.Reconcile.LockTTLSec = 30
	}
	if c.Reconcile.LeaseSec <= 0 {
		c.Reconcile.LeaseSec = 120
	}
	if c.Reconcile.MaxRetry <= 0 {
		c.Reconcile.MaxRetry = 3
	}
	if c.Reconcile.Workers <= 0 {
		c.Reconcile.Workers = 4
	}
	if c.Reconcile.SweepBatch <= 0 {
		c.Reconcile.SweepBatch = 100
	}
	if c.ShardCount <= 0 {
		c.ShardCount = 4
	}
	if strings.TrimSpace(c.Gateway.PricePerToken) == "" {
		c.Gateway.PricePerToken = "0.1"
	}
	for _, m := range []*MysqlCfg{&c.MysqlPay, &c.MysqlUser} {
		if m.Charset == "" {
			m.Charset = "utf8mb4"
		}
		if m.MaxIdleConns <= 0 {
			m.MaxIdleConns = 10
		}
		if m.MaxOpenConns <= 0 {
			m.MaxOpenConns = 50
		}
	}
}
