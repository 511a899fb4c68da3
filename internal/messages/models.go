package messages

import "runtime"

type SdkLogLevel string

var (
	reset  = "\033[0m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	white  = "\033[97m"

	// generics
	FAILED_TYPE_ASSERTION = "Failed type assertion"

	// configuration info messages
	CONFIG_NO_CUSTOM_PATH_SPECIFIED = "No config file path specified with --c, --configfile. Using default path."
	CONFIG_STARTED_LOADING          = "The sdk configuration is loaded from %s"
	CONFIG_FINISHED_LOADING         = "The sdk configuration successfully loaded"
	CONFIG_UNKNOWN_STORAGE_BACKEND  = "Unknown storage backend %q in config"

	// rocksdb messages
	ROCKSDB_CONNECTING        = "Opening rocksdb instance at %s"
	ROCKSDB_FAILED_TO_CONNECT = "Failed to open rocksdb instance at %s"
	ROCKSDB_CONNECTED         = "Successfully opened rocksdb instance"
	ROCKSDB_FAILED_GET        = "Failed to read namespace %s from rocksdb"
	ROCKSDB_FAILED_SET        = "Failed to write namespace %s to rocksdb"
	ROCKSDB_FAILED_CLEAR      = "Failed to clear rocksdb storage"

	// postgres
	POSTGRES_CONNECTING                        = "Connecting to postgres database using '%s'"
	POSTGRES_CONNECTED                         = "Successfully connected to postgres instance"
	POSTGRES_FAILED_TO_PARSE_CONNECTION_STRING = "Failed to parse postgres connection string"
	POSTGRES_FAILED_TO_CONNECT                 = "Failed to connect to postgres database"
	POSTGRES_FAILED_TO_PING                    = "Failed to ping postgres database instance"
	POSTGRES_FAILED_TO_INIT_TABLE              = "Failed to create history blobs table"
	POSTGRES_FAILED_GET                        = "Failed to read namespace %s from postgres"
	POSTGRES_FAILED_SET                        = "Failed to upsert namespace %s in postgres"
	POSTGRES_FAILED_CLEAR                      = "Failed to clear postgres history blobs"

	// connection
	CONNECTION_CONNECTING        = "Connecting to node websocket endpoint %s"
	CONNECTION_CONNECTED         = "Successfully connected to node websocket endpoint"
	CONNECTION_FAILED_TO_CONNECT = "Failed to connect to node websocket endpoint %s"
	CONNECTION_FAILED_METADATA   = "Failed to retrieve chain metadata from node"
	CONNECTION_FAILED_TYPES_FILE = "Failed to read network custom types file"

	// submitter
	SUBMITTER_SUBMITTING      = "Submitting %s extrinsic for account %s"
	SUBMITTER_STATUS_RECEIVED = "Extrinsic %s reported status %s"
	SUBMITTER_TERMINAL_STATE  = "Extrinsic %s reached terminal state %s"
	SUBMITTER_FAILED          = "Extrinsic submission failed"

	// history
	HISTORY_DESERIALIZE_FAILED = "Failed to deserialize history blob for namespace %s, starting empty"
	HISTORY_PERSIST_FAILED     = "Failed to persist history for namespace %s"
)

const (
	// log levels used by the sdk
	LOG_LEVEL_INFO    SdkLogLevel = "INFO"
	LOG_LEVEL_ERROR   SdkLogLevel = "ERROR"
	LOG_LEVEL_WARNING SdkLogLevel = "WARNING"
	LOG_LEVEL_SUCCESS SdkLogLevel = "SUCCESS"
)

func init() {
	if runtime.GOOS == "windows" {
		reset = ""
		red = ""
		green = ""
		yellow = ""
		blue = ""
		white = ""
	}
}

type SdkMessage struct {
	LogLevel       SdkLogLevel
	Component      string
	Error          error
	FormatString   string
	AdditionalInfo []interface{}
}
