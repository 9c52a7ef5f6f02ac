package storage

const (
	PT_GRAPH_FILE_NAME     = "pt_graph.zst"
	STREET_GRAPH_FILE_NAME = "street_graph.zst"
	KV_DIR                 = "navigatorx-pt-kv"
	TRIP_TRANSFERS_DIR     = "navigatorx-pt-triptransfers"
)
