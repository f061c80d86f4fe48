package stores

import (
	"os"

	"github.com/sirupsen/logrus"

	"inscribe-server/core"
	"inscribe-server/stores/aws"
	"inscribe-server/stores/filesystem"
	"inscribe-server/stores/memory"
	"inscribe-server/stores/sqlite"
)

// Store is a union interface covering every persisted concern: per-session
// raster blobs, workspace metadata, tool preferences and recognition history.
type Store interface {
	core.SnapshotStore
	core.WorkspaceStore
	core.PreferenceStore
	core.HistoryStore
}

// GetStore selects a backend from the STORAGE_TYPE environment variable,
// falling back to in-memory storage.
func GetStore() Store {
	storageType := os.Getenv("STORAGE_TYPE")
	var store Store

	storageField := logrus.Fields{
		"storageType": storageType,
	}

	switch storageType {
	case "filesystem":
		basePath := os.Getenv("LOCAL_STORAGE_PATH")
		if basePath == "" {
			basePath = "./data" // Default path
		}
		storageField["basePath"] = basePath
		store = filesystem.NewStore(basePath)
	case "sqlite":
		dataSourceName := os.Getenv("DATA_SOURCE_NAME")
		if dataSourceName == "" {
			dataSourceName = "inscribe.db" // Default filename
		}
		storageField["dataSourceName"] = dataSourceName
		store = sqlite.NewStore(dataSourceName)
	case "s3":
		bucketName := os.Getenv("S3_BUCKET_NAME")
		if bucketName == "" {
			logrus.Fatal("S3_BUCKET_NAME environment variable must be set for s3 storage type")
		}
		storageField["bucketName"] = bucketName
		store = aws.NewStore(bucketName)
	default:
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	}
	logrus.WithFields(storageField).Info("Use storage")
	return store
}
