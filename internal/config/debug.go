package config

import "os"

func IsDebug() bool {
	return os.Getenv("NIMBUS_DEBUG") == "1"
}
