package config

type PostgresConfig struct {
	User     string `json:"postgres_user"`
	Password string `json:"postgres_password"`
	Host     string `json:"postgres_host"`
	Port     string `json:"postgres_port"`
	Db       string `json:"postgres_db"`
	ConnPool int    `json:"postgres_conn_pool"`
}

type ChainConfig struct {
	WsRpcEndpoint     string `json:"ws_rpc_endpoint"`
	DecoderTypesFile  string `json:"decoder_types_file"`
	ErrorRegistryFile string `json:"error_registry_file"`
	AddressPrefix     uint16 `json:"address_prefix"`
}

type RocksdbConfig struct {
	RocksdbPath string `json:"rocksdb_path"`
}

type StorageConfig struct {
	// Backend selects where history blobs live: "rocksdb" or "postgres"
	Backend string `json:"backend"`
}

type Config struct {
	SdkVersion     string         `json:"version"`
	ChainConfig    ChainConfig    `json:"chain_config"`
	StorageConfig  StorageConfig  `json:"storage_config"`
	RocksdbConfig  RocksdbConfig  `json:"rocksdb_config"`
	PostgresConfig PostgresConfig `json:"postgres_config"`
}
