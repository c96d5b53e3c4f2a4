// Package config fills configuration structs from environment variables.
//
// Structs declare their variables with caarlos0/env tags. A .env file in the
// working directory is read once before the first parse, without overriding
// variables already set in the process environment.
//
//	type Config struct {
//	    Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	cfg := config.MustLoad[Config]()
package config
