// Package config loads service configuration with viper and godotenv.
//
// A config.yml is searched in ./cmd/<service>/, ./config/ and the working
// directory; a .env file next to it is loaded into the environment; then every
// leaf key declared by the target struct's mapstructure tags is bound to an
// environment variable named after its path:
//
//	objstore.access_key  <-  OBJSTORE_ACCESS_KEY
//	server.port          <-  SERVER_PORT
//
// Application configs embed ServiceConfig and add their own blocks, each with
// ApplyDefaults and Validate.
package config
