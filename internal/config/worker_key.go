package config

type WorkerKeyStruct struct {
	DebitRetryQueue string
}

var WorkerKey = &WorkerKeyStruct{
	DebitRetryQueue: "wallet_debit_retry_queue",
}
