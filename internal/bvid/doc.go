// Package bvid converts between bilibili's legacy numeric video identifiers
// (av numbers) and the 12-character BV identifiers used in modern URLs.
//
// The transform is a bijection on [0, 2^51): the value is tagged with bit 51,
// XOR-mixed with a fixed constant, and written as nine base-58 digits into a
// fixed permutation of positions after the "BV1" prefix.
package bvid
