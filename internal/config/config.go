package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port              string
	AppEnv            string // production | staging | development
	DatabaseURL       string
	JWTSecret         []byte
	CORSOrigins       []string
	RedisAddr         string
	RequestTimeoutSec int
	DBMaxConns        int
	DBMinConns        int
	// Capacidade diária da agenda (ocupação do dashboard)
	DailyCapacity int
	AppPublicURL  string
	// WhatsApp (Twilio) para confirmação de agendamento
	TwilioAccountSid   string
	TwilioAuthToken    string
	TwilioWhatsAppFrom string
}

func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if len(jwtSecret) < 32 {
		jwtSecret = "default-secret-min-32-chars-required!!"
	}
	cors := os.Getenv("CORS_ORIGINS")
	if cors == "" {
		cors = "http://localhost:5173"
	}
	var origins []string
	for _, o := range strings.Split(cors, ",") {
		if t := strings.TrimSpace(o); t != "" {
			origins = append(origins, t)
		}
	}
	return &Config{
		Port:               port,
		AppEnv:             getEnv("APP_ENV", "development"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTSecret:          []byte(jwtSecret),
		CORSOrigins:        origins,
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RequestTimeoutSec:  getEnvInt("REQUEST_TIMEOUT_SEC", 30),
		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 0),
		DBMinConns:         getEnvInt("DB_MIN_CONNS", 0),
		DailyCapacity:      getEnvInt("DAILY_CAPACITY", 10),
		AppPublicURL:       getEnv("APP_PUBLIC_URL", "http://localhost:5173"),
		TwilioAccountSid:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppFrom: os.Getenv("TWILIO_WHATSAPP_FROM"),
	}
}

func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getEnvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}
