package commands

import (
	"fmt"
	"strings"

	"academyapp/internal/database"
)

// maskDatabaseURI masks sensitive parts of the connection URI for display
func maskDatabaseURI(uri string) string {
	// Simple masking for display purposes
	if strings.Contains(uri, "@") {
		parts := strings.Split(uri, "@")
		if len(parts) == 2 {
			return "mongodb://***:***@" + parts[1]
		}
	}
	return uri
}

// getDatabaseInfo returns database connection information
func getDatabaseInfo(dbManager *database.Manager) string {
	if dbManager == nil || dbManager.Database() == nil {
		return "Not connected"
	}
	return fmt.Sprintf("Connected to %s", dbManager.Database().Name())
}
