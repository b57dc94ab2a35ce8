// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package thermistor

// Resistance tables, in ohms, one entry per degree Celsius

var stockLidOhms = []uint32{
	28704, 27417, 26197, 25039, 23940, 22897, 21906, 20964, 20070, 19219,
	18410, 17641, 16909, 16212, 15548, 14916, 14313, 13739, 13192, 12669,
	12171, 11696, 11242, 10809, 10395, 10000, 9622, 9261, 8916, 8585,
	8269, 7967, 7678, 7400, 7135, 6881, 6637, 6403, 6179, 5965,
	5759, 5561, 5372, 5189, 5015, 4847, 4686, 4531, 4382, 4239,
	4101, 3969, 3842, 3719, 3601, 3488, 3379, 3274, 3172, 3075,
	2981, 2890, 2803, 2719, 2638, 2559, 2484, 2411, 2341, 2273,
	2207, 2144, 2083, 2024, 1967, 1912, 1858, 1807, 1757, 1709,
	1662, 1617, 1574, 1532, 1491, 1451, 1413, 1376, 1340, 1305,
	1272, 1239, 1208, 1177, 1147, 1118, 1091, 1063, 1037, 1012,
	987, 963, 940, 917, 895, 874, 853, 833, 814, 795,
	776, 758, 741, 724, 708, 692, 676, 661, 646, 632,
	618, 604, 591, 578, 566, 554,
}

var stockPlateOhms = []uint32{
	248277, 233136, 219036, 205897, 193648, 182221, 171556, 161596, 152290, 143590,
	135452, 127837, 120707, 114028, 107768, 101898, 96391, 91222, 86369, 81809,
	77523, 73492, 69701, 66132, 62771, 59606, 56623, 53810, 51157, 48654,
	46290, 44058, 41950, 39957, 38072, 36290, 34603, 33006, 31494, 30062,
	28704, 27417, 26197, 25039, 23940, 22897, 21906, 20964, 20070, 19219,
	18410, 17641, 16909, 16212, 15548, 14916, 14313, 13739, 13192, 12669,
	12171, 11696, 11242, 10809, 10395, 10000, 9622, 9261, 8916, 8585,
	8269, 7967, 7678, 7400, 7135, 6881, 6637, 6403, 6179, 5965,
	5759, 5561, 5372, 5189, 5015, 4847, 4686, 4531, 4382, 4239,
	4101, 3969, 3842, 3719, 3601, 3488, 3379, 3274, 3172, 3075,
	2981, 2890, 2803, 2719, 2638, 2559, 2484, 2411, 2341, 2273,
	2207, 2144, 2083, 2024, 1967, 1912, 1858, 1807, 1757, 1709,
	1662, 1617, 1574, 1532, 1491, 1451, 1413, 1376, 1340, 1305,
	1272, 1239, 1208, 1177, 1147, 1118, 1091, 1063, 1037, 1012,
	987, 963, 940, 917, 895, 874,
}

var ntc103aLidOhms = []uint32{
	33890, 32138, 30487, 28933, 27468, 26088, 24785, 23557, 22397, 21302,
	20268, 19291, 18367, 17493, 16667, 15885, 15145, 14444, 13780, 13151,
	12554, 11988, 11452, 10942, 10459, 10000, 9564, 9150, 8756, 8382,
	8026, 7687, 7365, 7058, 6765, 6487, 6222, 5969, 5728, 5499,
	5279, 5070, 4871, 4680, 4498, 4324, 4158, 4000, 3848, 3703,
	3564, 3431, 3304, 3183, 3066, 2955, 2848, 2746, 2648, 2554,
	2463, 2377, 2294, 2215, 2138, 2065, 1995, 1927, 1862, 1800,
	1740, 1682, 1627, 1574, 1522, 1473, 1426, 1380, 1336, 1294,
	1253, 1214, 1176, 1140, 1105, 1071, 1038, 1007, 977, 947,
	919, 892, 866, 840, 816, 792, 769, 747, 726, 705,
	685, 666, 648, 630, 612, 595, 579, 563, 548, 533,
	519, 505, 492, 479, 466, 454, 442, 431, 420, 409,
	399, 389, 379, 369, 360, 351,
}

var ntc103aPlateOhms = []uint32{
	411749, 382827, 356157, 331548, 308825, 287832, 268423, 250469, 233850, 218457,
	204192, 190964, 178691, 167297, 156712, 146875, 137727, 129215, 121291, 113910,
	107031, 100617, 94633, 89048, 83831, 78958, 74402, 70141, 66154, 62421,
	58925, 55649, 52578, 49698, 46995, 44458, 42075, 39836, 37731, 35752,
	33890, 32138, 30487, 28933, 27468, 26088, 24785, 23557, 22397, 21302,
	20268, 19291, 18367, 17493, 16667, 15885, 15145, 14444, 13780, 13151,
	12554, 11988, 11452, 10942, 10459, 10000, 9564, 9150, 8756, 8382,
	8026, 7687, 7365, 7058, 6765, 6487, 6222, 5969, 5728, 5499,
	5279, 5070, 4871, 4680, 4498, 4324, 4158, 4000, 3848, 3703,
	3564, 3431, 3304, 3183, 3066, 2955, 2848, 2746, 2648, 2554,
	2463, 2377, 2294, 2215, 2138, 2065, 1995, 1927, 1862, 1800,
	1740, 1682, 1627, 1574, 1522, 1473, 1426, 1380, 1336, 1294,
	1253, 1214, 1176, 1140, 1105, 1071, 1038, 1007, 977, 947,
	919, 892, 866, 840, 816, 792, 769, 747, 726, 705,
	685, 666, 648, 630, 612, 595,
}
