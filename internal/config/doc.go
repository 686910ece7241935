// Package config loads and validates sms-gateway configuration.
//
// Configuration comes from a YAML file with ${VAR} environment expansion, or
// entirely from environment variables when no file exists (the usual setup
// when an MCP client launches the stdio binary directly):
//
//	TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_PHONE_NUMBER
//	DEFAULT_TO_PHONE_NUMBER
//	SUPABASE_URL, SUPABASE_KEY
//	SMS_GATEWAY_DB_PATH, PORT, LOG_LEVEL, LOG_FORMAT
//
// The three Twilio values gate whether the SMS capability initializes; the
// gateway still serves the protocol without them, failing tool calls with a
// configuration error. The Supabase and SQLite sinks are optional.
package config
