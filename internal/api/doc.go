// Package api provides the client for the gacha record REST API.
//
// Hosts, chosen by the capture URL's game_biz:
//   - hkrpg_cn: https://public-operation-hkrpg.mihoyo.com
//   - hkrpg_global: https://public-operation-hkrpg-sg.hoyoverse.com
//
// Endpoints:
//   - /common/gacha_record/api/getGachaLog (standard pools)
//   - /common/gacha_record/api/getLdGachaLog (collaboration pools)
//
// Every response is wrapped in {retcode, message, data}; a non-zero retcode
// is returned as *RetcodeError.
package api
