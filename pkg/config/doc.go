// Package config loads env-tagged structs with github.com/caarlos0/env/v11,
// optionally seeded from dotenv files through github.com/joho/godotenv.
//
//	var cfg featurekit.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Each struct type is parsed once and cached; ForceReload and ResetCache
// discard the cache, mostly for tests. LoadEnv applies dotenv files before
// parsing, with later files taking precedence.
package config
