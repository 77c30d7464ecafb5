package config

type WorkerKeyStruct struct {
	ArchiveSessionsQueue  string
	UpsertCandidatesQueue string
}

var WorkerKey = &WorkerKeyStruct{
	ArchiveSessionsQueue:  "archive_sessions_queue",
	UpsertCandidatesQueue: "upsert_candidates_queue",
}
