// Package domain holds the pure core of the disaster scenario simulator:
// prompt composition, model-output parsing, station resolution, and tide
// series summarization. It performs no I/O; adapters and pipelines feed it.
//
// # Scenario generation
//
// A run is a chain of generation stages (situation, choices, survival rate,
// feedback), each consuming the accumulated turn history. Prompts and model
// output are Korean; the continuation prompt enumerates every prior turn so
// the backend keeps the full causal chain in view. Model output is free text:
// structured stages are decoded with a fenced-JSON-first policy that falls
// back to a caller-supplied default instead of failing, and the choices stage
// uses numbered plain text because it parses more reliably than JSON.
//
// # KHOA OceanGrid conventions
//
// Oceanographic data comes from the KHOA OceanGrid open API
// (http://www.khoa.go.kr/api/oceangrid). Its payload shape varies by endpoint
// and is deliberately not modeled as a rigid schema:
//
//	Station listings:
//	  Field names differ per data kind. Codes may appear as ObsCode, obsCode,
//	  obs_code, obs_post_id, or obsPostId; coordinates as ObsLat/obsLat/
//	  obs_lat/latitude/lat (and the lon equivalents). Values are sometimes
//	  wrapped as {"value": x}. Lookup is alias-list first, then by normalized
//	  key (lowercased, non-alphanumerics stripped).
//
//	Station codes:
//	  Tide observation stations carry a "DT_" code prefix, e.g. "DT_0001"
//	  (인천). Listing entries carry a free-text obs_object classification
//	  ("조위", "파고", "해무") and a data_type field ("조위관측소").
//
//	Tide series:
//	  Readings nest under result.data or data (or arrive as a bare list).
//	  Each reading has record_time/recordTime and tide_level/tideLevel in
//	  centimeters, with levels encoded as strings or numbers.
//
// Nearest-station resolution uses the haversine great-circle distance with a
// mean Earth radius of 6371 km; exact distance ties keep the first candidate
// in listing order, so resolution is deterministic for a fixed listing.
package domain
