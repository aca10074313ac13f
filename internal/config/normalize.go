package config

import "strings"

func normalizeAppConfig(cfg AppConfig) AppConfig {
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = defaultStoreDriver
	}
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Mongo = normalizeMongoConfig(cfg.Mongo)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.AI = normalizeAIConfig(cfg.AI)
	cfg.Maps.APIKey = strings.TrimSpace(cfg.Maps.APIKey)
	cfg.Summary = normalizeSummaryConfig(cfg.Summary)
	cfg.Paths.Logs = strings.TrimSpace(cfg.Paths.Logs)
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)
	cfg.Timezone = strings.TrimSpace(cfg.Timezone)

	cfg.DSN = cfg.Database.DSNValue()
	cfg.MongoURI = cfg.Mongo.URIValue()
	cfg.RedisURL = cfg.Redis.URLValue()
	return cfg
}

func normalizeDatabaseConfig(cfg DatabaseRuntimeConfig) DatabaseRuntimeConfig {
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.User = strings.TrimSpace(cfg.User)
	cfg.Password = strings.TrimSpace(cfg.Password)
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Charset = strings.TrimSpace(cfg.Charset)
	cfg.Loc = strings.TrimSpace(cfg.Loc)

	if cfg.Host == "" {
		cfg.Host = defaultDBHost
	}
	if cfg.Port == 0 {
		cfg.Port = defaultDBPort
	}
	if cfg.User == "" {
		cfg.User = defaultDBUser
	}
	if cfg.Name == "" {
		cfg.Name = defaultDBName
	}
	if cfg.Charset == "" {
		cfg.Charset = defaultDBCharset
	}
	if cfg.Loc == "" {
		cfg.Loc = defaultDBLoc
	}
	if cfg.Params != nil {
		cfg.Params = copyStringMap(cfg.Params)
	}
	return cfg
}

func normalizeMongoConfig(cfg MongoRuntimeConfig) MongoRuntimeConfig {
	cfg.URI = strings.TrimSpace(cfg.URI)
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Username = strings.TrimSpace(cfg.Username)
	cfg.Password = strings.TrimSpace(cfg.Password)
	cfg.Database = strings.TrimSpace(cfg.Database)
	cfg.AuthSource = strings.TrimSpace(cfg.AuthSource)

	if cfg.Host == "" {
		cfg.Host = defaultMongoHost
	}
	if cfg.Port == 0 {
		cfg.Port = defaultMongoPort
	}
	if cfg.Database == "" {
		cfg.Database = defaultMongoDatabase
	}
	return cfg
}

func normalizeRedisConfig(cfg RedisRuntimeConfig) RedisRuntimeConfig {
	cfg.URL = normalizeRedisRawURL(cfg.URL)
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Username = strings.TrimSpace(cfg.Username)
	cfg.Password = strings.TrimSpace(cfg.Password)

	if cfg.Host == "" {
		cfg.Host = defaultRedisHost
	}
	if cfg.Port == 0 {
		cfg.Port = defaultRedisPort
	}
	return cfg
}

func normalizeRedisRawURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "redis://") || strings.HasPrefix(trimmed, "rediss://") {
		return trimmed
	}
	return "redis://" + trimmed
}

func normalizeAIConfig(cfg AIRuntimeConfig) AIRuntimeConfig {
	cfg.Type = normalizeProviderType(cfg.Type)
	if cfg.Type == "" {
		cfg.Type = defaultAIType
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.SummaryModel = strings.TrimSpace(cfg.SummaryModel)
	if cfg.SummaryModel == "" {
		cfg.SummaryModel = defaultSummaryModel
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = defaultMaxTokens
	}
	return cfg
}

func normalizeSummaryConfig(cfg SummaryRuntimeConfig) SummaryRuntimeConfig {
	cfg.Lock = strings.ToLower(strings.TrimSpace(cfg.Lock))
	if cfg.Lock == "" {
		cfg.Lock = defaultSummaryLock
	}
	if cfg.FetchLimit == 0 {
		cfg.FetchLimit = defaultFetchLimit
	}
	if cfg.PromptLimit == 0 {
		cfg.PromptLimit = defaultPromptLimit
	}
	if cfg.LockTTLSeconds == 0 {
		cfg.LockTTLSeconds = defaultLockTTLSeconds
	}
	return cfg
}

func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	t = strings.ReplaceAll(t, " ", "")
	return t
}

func isOpenAIType(raw string) bool {
	switch normalizeProviderType(raw) {
	case "", "openai", "openai-compatible", "openaicompatible":
		return true
	}
	return false
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	trimmed := strings.ToLower(strings.TrimSpace(env))
	if trimmed == "" {
		return defaultEnv
	}
	return trimmed
}

func copyStringMap(input map[string]string) map[string]string {
	if input == nil {
		return nil
	}
	out := make(map[string]string, len(input))
	for key, value := range input {
		k := strings.TrimSpace(key)
		v := strings.TrimSpace(value)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}
