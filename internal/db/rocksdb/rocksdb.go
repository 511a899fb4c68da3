package rocksdb

import (
	"go-subtx/internal/config"
	"go-subtx/internal/messages"

	"github.com/linxGnu/grocksdb"
)

// RockClient stores history blobs under namespace keys in a local rocksdb
// instance
type RockClient struct {
	db   *grocksdb.DB
	opts *grocksdb.Options
	ro   *grocksdb.ReadOptions
	wo   *grocksdb.WriteOptions
}

// OpenRocksdb opens (or creates) the rocksdb instance indicated by the path
// in the config
func OpenRocksdb(rocksdbConfig config.RocksdbConfig) (*RockClient, error) {
	messages.NewSdkMessage(
		messages.LOG_LEVEL_INFO,
		"",
		nil,
		messages.ROCKSDB_CONNECTING,
		rocksdbConfig.RocksdbPath,
	).ConsoleLog()

	opts := grocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	ro := grocksdb.NewDefaultReadOptions()
	wo := grocksdb.NewDefaultWriteOptions()

	db, err := grocksdb.OpenDb(opts, rocksdbConfig.RocksdbPath)
	if err != nil {
		return nil, messages.NewSdkMessage(
			messages.LOG_LEVEL_ERROR,
			messages.GetComponent(OpenRocksdb),
			err,
			messages.ROCKSDB_FAILED_TO_CONNECT,
			rocksdbConfig.RocksdbPath,
		).ToError()
	}

	messages.NewSdkMessage(
		messages.LOG_LEVEL_SUCCESS,
		"",
		nil,
		messages.ROCKSDB_CONNECTED,
	).ConsoleLog()

	return &RockClient{
		db,
		opts,
		ro,
		wo,
	}, nil
}

// Get reads the blob stored under a namespace, empty string when absent
func (rc *RockClient) Get(namespace string) (string, error) {
	value, err := rc.db.Get(rc.ro, []byte(namespace))
	if err != nil {
		return "", messages.NewSdkMessage(
			messages.LOG_LEVEL_ERROR,
			messages.GetComponent(rc.Get),
			err,
			messages.ROCKSDB_FAILED_GET,
			namespace,
		).ToError()
	}
	defer value.Free()

	return string(value.Data()), nil
}

// Set overwrites the blob stored under a namespace
func (rc *RockClient) Set(namespace string, value string) error {
	err := rc.db.Put(rc.wo, []byte(namespace), []byte(value))
	if err != nil {
		return messages.NewSdkMessage(
			messages.LOG_LEVEL_ERROR,
			messages.GetComponent(rc.Set),
			err,
			messages.ROCKSDB_FAILED_SET,
			namespace,
		).ToError()
	}
	return nil
}

// Clear drops every stored namespace
func (rc *RockClient) Clear() error {
	it := rc.db.NewIterator(rc.ro)
	defer it.Close()

	for it.SeekToFirst(); it.Valid(); it.Next() {
		key := it.Key()
		err := rc.db.Delete(rc.wo, key.Data())
		key.Free()
		if err != nil {
			return messages.NewSdkMessage(
				messages.LOG_LEVEL_ERROR,
				messages.GetComponent(rc.Clear),
				err,
				messages.ROCKSDB_FAILED_CLEAR,
			).ToError()
		}
	}
	return nil
}

func (rc *RockClient) Close() {
	rc.db.Close()
}
