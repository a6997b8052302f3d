// Package videoref classifies media paths reported by the player and resolves
// supported bilibili URLs into the canonical form handed to the converter.
//
// Classification is total: every input yields a Decision. Inputs that are not
// bilibili videos are skipped with a reason code rather than an error. The only
// error ClassifyStrict reports is a legacy numeric identifier outside the BV
// codec domain, which the pipeline treats as a failed run.
//
// Recognised path shapes:
//
//	/video/<id>                 canonical video page
//	/<id>                       bare identifier, rewritten to /video/<id>
//	/festival/<name>?bvid=<BV>  event page, rewritten to /video/<BV>
//	/bangumi/...                series/episode page, token is the last segment
//
// The bare domain bilibili.com is always treated as www.bilibili.com.
package videoref
