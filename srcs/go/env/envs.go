package env

// Environment variables set by ncclpg-run for each rank, users should not
// set them.
const (
	RankEnvKey         = `NCCLPG_RANK`
	SizeEnvKey         = `NCCLPG_SIZE`
	StoreAddrEnvKey    = `NCCLPG_STORE_ADDR`
	LocalDevicesEnvKey = `NCCLPG_LOCAL_DEVICES`
	JobStartTimestamp  = `NCCLPG_JOB_START_TIMESTAMP`
)
